package commands

import (
	"fmt"

	"convctl/internal/output"
	"convctl/internal/verify"
)

// RunVerify runs one verifier against the workspace and prints its
// report. A failing verification makes the command fail.
func RunVerify(name, workspace string) error {
	res, err := verify.Run(name, workspace)
	if err != nil {
		return err
	}
	output.Print(res, func() {
		fmt.Print(res.Markdown())
	})
	if !res.Passed {
		return fmt.Errorf("%s verification failed: %s", name, res.Summary)
	}
	return nil
}
