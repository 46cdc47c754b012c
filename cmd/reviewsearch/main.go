// Package main provides the entry point for the reviewsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/reviewsearch/cmd/reviewsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
