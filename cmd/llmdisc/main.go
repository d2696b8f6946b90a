// Package main is the entry point for the discovery engine's compiler and
// validator CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/llmdiscovery/engine/internal/clierrors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *clierrors.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Err)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(clierrors.ExitGeneralError)
	}
}
