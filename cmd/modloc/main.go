// ModLoc - PTM site localization and cross-spectrum inference tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/ModLoc/cmd/modloc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
