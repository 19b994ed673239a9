// Package main provides the entry point for the ancestry CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/ancestry/cmd/ancestry/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
