// Package main provides the evalsmith CLI: run comparative evaluations
// against the platform and inspect datasets from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/Makoq/evalsmith/cmd/evalsmith/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
