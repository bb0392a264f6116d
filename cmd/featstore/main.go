// Command featstore is a thin operator CLI over the feature store: apply
// definitions, run materializations and spot-check online rows.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
