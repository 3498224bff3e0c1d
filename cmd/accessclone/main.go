// Package main provides the accessclone CLI.
package main

import (
	"os"

	"github.com/kentyler/accessclone-sub006/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
