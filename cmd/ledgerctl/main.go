// Command ledgerctl is the operator CLI for the card ledger.
package main

import (
	"fmt"
	"os"

	"bankcards/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
