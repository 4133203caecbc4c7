package conversation

import (
	"regexp"
)

// varPattern matches {{NAME}} template variables. Names are upper-case
// identifiers so ordinary prose with braces passes through untouched.
var varPattern = regexp.MustCompile(`\{\{([A-Z][A-Z0-9_]*)\}\}`)

// ExpandVars substitutes {{NAME}} variables in s from vars. Variables
// with no binding are left verbatim so the same parsed workflow can be
// replayed with different bindings.
func ExpandVars(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-2]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}
