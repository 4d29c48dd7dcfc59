// Command pdfz ingests PDF documents and serves them to language models.
package main

import (
	"os"

	"github.com/custodia-labs/pdfz/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
