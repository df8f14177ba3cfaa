// Command docq is the entry point for the docq document question-answering
// tool. It provides a CLI interface (via Cobra), an HTTP server with a
// REST/SSE API, and an MCP server for editor and agent integration.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/docq-go/cmd/docq/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
