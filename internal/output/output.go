// Package output switches command results between human-readable and
// JSON rendering, driven by the global --json flag.
package output

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONMode controls whether output is JSON or human-readable.
var JSONMode bool

// Result wraps data for JSON output.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Print outputs data. In JSON mode, marshals to JSON. Otherwise calls
// the textFn.
func Print(data interface{}, textFn func()) {
	if JSONMode {
		out, err := json.MarshalIndent(Result{Success: true, Data: data}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println(string(out))
		return
	}
	textFn()
}

// PrintError reports a command failure. In JSON mode the error is
// wrapped in the same envelope as success output.
func PrintError(err error) {
	if JSONMode {
		out, _ := json.MarshalIndent(Result{Success: false, Error: err.Error()}, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
