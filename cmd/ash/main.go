// Package main is the entry point for the ash shell.
package main

import (
	"os"

	"github.com/runger/ash/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
