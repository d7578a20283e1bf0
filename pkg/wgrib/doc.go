// Package wgrib runs the wgrib and wgrib2 decoders and returns their text
// output as values. It is the composition root over package routine (which
// decoder to call) and package capture (how its output is collected).
//
// An Invoker is built from a Config, serializes its calls, and publishes
// run_start / run_end / run_error events on an EventBus. Its Tools method
// exposes the same operation as a toolbox tool, which cmd/wgrib serves over
// the Model Context Protocol.
package wgrib
