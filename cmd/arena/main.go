// Command arena runs the agent arena and its tooling.
package main

import (
	"os"

	"github.com/talgya/mini-mind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
