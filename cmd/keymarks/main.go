// Package main is the entry point for the keymarks command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/keymarks/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.Execute(context.Background(), version, commit, date); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
