// Package main provides the entry point for the tracksync CLI.
package main

import (
	"os"

	"github.com/calebroseland/tracksync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
