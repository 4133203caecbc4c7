package session

import (
	"os/exec"
	"strings"
)

// CommitCheckpoint snapshots the workspace with a git commit. It is
// best-effort: a workspace without git, or with nothing staged, is
// not an error.
func CommitCheckpoint(dir, name string) error {
	if _, err := gitOutput(dir, "rev-parse", "--git-dir"); err != nil {
		return nil // not a git repository
	}
	if _, err := gitOutput(dir, "add", "-A"); err != nil {
		return err
	}
	// diff --cached --quiet exits non-zero when something is staged
	if _, err := gitOutput(dir, "diff", "--cached", "--quiet"); err == nil {
		return nil // nothing to commit
	}
	_, err := gitOutput(dir, "commit", "-m", "checkpoint: "+name)
	return err
}

// gitOutput runs a git command in the given directory and returns trimmed stdout.
func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return strings.TrimSpace(string(out)), err
}
