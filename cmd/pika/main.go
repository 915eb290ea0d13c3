// Command pika is a minimal front end over pkg/pika, demonstrating the
// embedder surface from the command line (spec.md §6.5: "front-end
// example only" — no language front end ships with this module).
package main

import (
	"fmt"
	"os"

	"github.com/gopika/gopika/cmd/pika/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
