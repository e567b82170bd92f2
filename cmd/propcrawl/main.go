package main

import (
	"github.com/property-radar/crawl/internal/cli"
)

func main() {
	// Interrupt handling lives in the run command, which is the only place
	// a stop needs to wait for a batch boundary.
	cli.Execute()
}
