// traceviewctl queries trace windows from a traceview server
package main

import (
	"fmt"
	"os"

	"github.com/agenttrace/traceview/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
