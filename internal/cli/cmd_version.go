// Package cli implements the tracksync command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at release time via -ldflags.
var version = "0.1.0-dev"

// newVersionCmd reports the build version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tracksync version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tracksync version " + version)
		},
	}
}
