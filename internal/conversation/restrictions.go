package conversation

// FileRestrictions scopes which files the assistant may touch during a
// run. Patterns are globs evaluated by the adapter layer; this type only
// carries and merges them.
type FileRestrictions struct {
	AllowPatterns []string `json:"allowPatterns,omitempty"`
	DenyPatterns  []string `json:"denyPatterns,omitempty"`
	AllowDirs     []string `json:"allowDirs,omitempty"`
	DenyDirs      []string `json:"denyDirs,omitempty"`
}

// IsEmpty reports whether no restrictions are set.
func (r FileRestrictions) IsEmpty() bool {
	return len(r.AllowPatterns) == 0 && len(r.DenyPatterns) == 0 &&
		len(r.AllowDirs) == 0 && len(r.DenyDirs) == 0
}

// MergeWithCLI reconciles workflow-declared restrictions with patterns
// supplied on the command line. CLI allow patterns replace the workflow
// ones (the CLI intent is narrower scoping); CLI deny patterns append to
// the workflow ones (deny is additive, never weakened). Directory flags
// must be expanded to "dir/**" form before being passed in.
func (r FileRestrictions) MergeWithCLI(cliAllow, cliDeny []string) FileRestrictions {
	if len(cliAllow) == 0 && len(cliDeny) == 0 {
		return r
	}

	merged := r
	if len(cliAllow) > 0 {
		merged.AllowPatterns = cliAllow
	}
	if len(cliDeny) > 0 {
		deny := make([]string, 0, len(r.DenyPatterns)+len(cliDeny))
		deny = append(deny, r.DenyPatterns...)
		deny = append(deny, cliDeny...)
		merged.DenyPatterns = deny
	}
	return merged
}

// ExpandDirPatterns converts directory paths to their recursive glob
// form ("lib" -> "lib/**") for merging with file patterns.
func ExpandDirPatterns(dirs []string) []string {
	if len(dirs) == 0 {
		return nil
	}
	out := make([]string, len(dirs))
	for i, dir := range dirs {
		out[i] = dir + "/**"
	}
	return out
}
