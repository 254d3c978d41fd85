// Command format-search-results is a PostToolUse hook that prints
// knowledge-search results as a fixed-width table.
package main

import (
	"os"

	"github.com/alucardeht/crawl-worker/internal/format"
)

func main() {
	os.Exit(format.Run(os.Stdin, os.Stdout, os.Stderr))
}
