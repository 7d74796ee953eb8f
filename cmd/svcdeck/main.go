// Command svcdeck runs and supervises a project's local services.
package main

import (
	"os"

	"github.com/Iron-Ham/svcdeck/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
