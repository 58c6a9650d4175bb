// Package main is the entry point for the bakman CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thoreinstein/bakman/cmd/bakman/commands"
	bakerrors "github.com/thoreinstein/bakman/internal/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var exitErr *bakerrors.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Suggestion != "" {
				fmt.Fprintln(os.Stderr, exitErr.Suggestion)
			}
			os.Exit(exitErr.Code)
		}
		os.Exit(bakerrors.ExitUser)
	}
}
