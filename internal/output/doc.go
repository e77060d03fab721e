// Package output turns a solved formulation into cache contents and serializes them.
//
// # Extraction
//
// A video v is stored in cache c when the value of y_c_v is strictly greater than 0.5,
// which tolerates backends that return relaxed values for binaries. Caches are listed
// in increasing id order with their videos in increasing id order; caches holding
// nothing are omitted.
//
// # File format
//
//	<number of non-empty caches>
//	<cacheId> <videoId> <videoId> ...
//
// WriteFile replaces the destination atomically, so a reader never sees a partial
// file and a run that finds no solution leaves any existing file untouched.
//
// Read parses the same format back, which the verification step and the tests use
// to check the capacity invariant on what was actually written.
package output
