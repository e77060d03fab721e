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

package dataset

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrMalformedInput matches every *MalformedInputError with errors.Is.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports the first problem found while parsing an instance.
type MalformedInputError struct {
	// Line is the 1-based input line, 0 when the input ended early.
	Line int
	// Err locates the problem within the instance, e.g. endpoints[3].caches[1].cache.
	Err *field.Error
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Err.Error())
	}
	return fmt.Sprintf("malformed input at end of input: %s", e.Err.Error())
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformedInput.
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

func malformed(line int, err *field.Error) *MalformedInputError {
	return &MalformedInputError{Line: line, Err: err}
}

// first converts the first entry of errs, if any, into a MalformedInputError.
func first(line int, errs field.ErrorList) error {
	if len(errs) == 0 {
		return nil
	}
	return malformed(line, errs[0])
}
