/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package mps writes a solver.Model in free MPS format so it can be inspected or
// handed to an external MILP solver.
//
// Every variable is declared inside an INTORG/INTEND marker pair with a BV (binary)
// bound. The objective row is named OBJ and the direction is written in an OBJSENSE
// section. Unnamed rows and columns are named R<i> and C<j>.
package mps

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/llm-d/cache-placement-optimizer/pkg/solver"
)

const objectiveRow = "OBJ"

type entry struct {
	row  string
	coef float64
}

// Write renders m to w.
func Write(w io.Writer, m *solver.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	name := m.Name()
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(bw, "NAME %s\n", name)

	sense, objective := m.Objective()
	fmt.Fprintf(bw, "OBJSENSE\n    %s\n", objSense(sense))

	constraints := m.Constraints()
	rowNames := make([]string, len(constraints))
	fmt.Fprintf(bw, "ROWS\n N  %s\n", objectiveRow)
	for i := range constraints {
		rowNames[i] = constraints[i].Name
		if rowNames[i] == "" {
			rowNames[i] = "R" + strconv.Itoa(i)
		}
		fmt.Fprintf(bw, " %s  %s\n", rowType(constraints[i].Sense), rowNames[i])
	}

	columns := make([][]entry, m.NumVars())
	add := func(row string, t solver.Term) {
		col := columns[t.Var]
		if n := len(col); n > 0 && col[n-1].row == row {
			col[n-1].coef += t.Coef
			return
		}
		columns[t.Var] = append(col, entry{row: row, coef: t.Coef})
	}
	for _, t := range objective {
		add(objectiveRow, t)
	}
	for i := range constraints {
		for _, t := range constraints[i].Terms {
			add(rowNames[i], t)
		}
	}

	fmt.Fprintf(bw, "COLUMNS\n    MARKER  'MARKER'  'INTORG'\n")
	for v := range columns {
		col := colName(m, v)
		if len(columns[v]) == 0 {
			fmt.Fprintf(bw, "    %s  %s  0\n", col, objectiveRow)
			continue
		}
		for _, e := range columns[v] {
			fmt.Fprintf(bw, "    %s  %s  %s\n", col, e.row, formatFloat(e.coef))
		}
	}
	fmt.Fprintf(bw, "    MARKER  'MARKER'  'INTEND'\n")

	fmt.Fprintf(bw, "RHS\n")
	for i := range constraints {
		if constraints[i].RHS != 0 {
			fmt.Fprintf(bw, "    RHS  %s  %s\n", rowNames[i], formatFloat(constraints[i].RHS))
		}
	}

	fmt.Fprintf(bw, "BOUNDS\n")
	for v := 0; v < m.NumVars(); v++ {
		fmt.Fprintf(bw, " BV BND  %s\n", colName(m, v))
	}
	fmt.Fprintf(bw, "ENDATA\n")

	return bw.Flush()
}

// WriteFile renders m to path, creating parent directories as needed.
func WriteFile(path string, m *solver.Model) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, m); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func colName(m *solver.Model, v int) string {
	if name := m.Var(solver.VarID(v)).Name; name != "" {
		return name
	}
	return "C" + strconv.Itoa(v)
}

func rowType(s solver.Sense) string {
	switch s {
	case solver.GreaterOrEqual:
		return "G"
	case solver.Equal:
		return "E"
	default:
		return "L"
	}
}

func objSense(s solver.ObjectiveSense) string {
	if s == solver.Minimize {
		return "MIN"
	}
	return "MAX"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
