// Package routine is the boundary to the native GRIB decoders. A Routine is an
// opaque "run with argv, return exit status" entry point whose text output
// goes straight to the process's standard output and standard error
// descriptors.
//
// Two kinds are built in: "exec" runs a wgrib or wgrib2 binary as a child
// process that inherits the descriptors, and "linked" calls a decoder compiled
// into the binary through cgo (build tags wgrib and wgrib2). A Registry maps
// the primary and secondary selectors to the routines available in this
// build.
package routine
