package commands

import (
	"fmt"

	"convctl/internal/adapter"
	"convctl/internal/output"
)

// RunAdapters lists registered adapters.
func RunAdapters() error {
	names := adapter.List()
	output.Print(names, func() {
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
	})
	return nil
}
