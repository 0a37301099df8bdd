// Package main is the entry point for the cash-forecast CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/cash-forecast/cmd/cash-forecast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
