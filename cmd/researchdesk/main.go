// Package main implements the researchdesk CLI.
package main

import (
	"os"

	"github.com/Iron-Ham/researchdesk/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
