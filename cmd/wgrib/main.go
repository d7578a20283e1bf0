// Command wgrib runs the wgrib and wgrib2 GRIB decoders with their standard
// output and standard error captured, and serves them as MCP tools.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
