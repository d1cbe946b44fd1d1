// Package main is the sqlrunner command.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlrunner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
