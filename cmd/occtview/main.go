// Package main starts the touch viewer server.
package main

import "flag"

// main is the entrypoint for the viewer server.
func main() {
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	if err := run(*debug); err != nil {
		logFatal(err)
	}
}
