// Command criterion serves semantic search over the Quran and hadith
// collections through an MCP server, an HTTP API and the command line.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/criterion/cmd/criterion/cmd"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, cerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
