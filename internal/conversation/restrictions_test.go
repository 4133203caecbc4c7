package conversation

import (
	"reflect"
	"testing"
)

func TestMergeWithCLIEmptyIsIdentity(t *testing.T) {
	orig := FileRestrictions{
		AllowPatterns: []string{"lib/**"},
		DenyPatterns:  []string{"lib/secret/**"},
	}

	merged := orig.MergeWithCLI(nil, nil)

	if !reflect.DeepEqual(merged, orig) {
		t.Errorf("MergeWithCLI(nil, nil) = %+v, want %+v", merged, orig)
	}
}

func TestMergeWithCLIAllowReplaces(t *testing.T) {
	orig := FileRestrictions{
		AllowPatterns: []string{"lib/**", "docs/**"},
		DenyPatterns:  []string{"lib/special"},
	}

	merged := orig.MergeWithCLI([]string{"a/*"}, []string{"b/*"})

	if !reflect.DeepEqual(merged.AllowPatterns, []string{"a/*"}) {
		t.Errorf("allow = %v, want [a/*]", merged.AllowPatterns)
	}
	if !reflect.DeepEqual(merged.DenyPatterns, []string{"lib/special", "b/*"}) {
		t.Errorf("deny = %v, want [lib/special b/*]", merged.DenyPatterns)
	}
}

func TestMergeWithCLIDenyOnly(t *testing.T) {
	orig := FileRestrictions{AllowPatterns: []string{"src/**"}}

	merged := orig.MergeWithCLI(nil, []string{"vendor/**"})

	if !reflect.DeepEqual(merged.AllowPatterns, []string{"src/**"}) {
		t.Errorf("allow should be untouched, got %v", merged.AllowPatterns)
	}
	if !reflect.DeepEqual(merged.DenyPatterns, []string{"vendor/**"}) {
		t.Errorf("deny = %v, want [vendor/**]", merged.DenyPatterns)
	}
}

func TestMergeWithCLIDuplicatesAllowed(t *testing.T) {
	orig := FileRestrictions{DenyPatterns: []string{"a/*"}}

	merged := orig.MergeWithCLI(nil, []string{"a/*"})

	// Later matching is glob evaluation, not set semantics.
	if !reflect.DeepEqual(merged.DenyPatterns, []string{"a/*", "a/*"}) {
		t.Errorf("deny = %v, want duplicate preserved", merged.DenyPatterns)
	}
}

func TestMergeDoesNotMutateOriginal(t *testing.T) {
	orig := FileRestrictions{DenyPatterns: []string{"x"}}

	_ = orig.MergeWithCLI([]string{"y"}, []string{"z"})

	if !reflect.DeepEqual(orig.DenyPatterns, []string{"x"}) {
		t.Errorf("original deny mutated: %v", orig.DenyPatterns)
	}
	if orig.AllowPatterns != nil {
		t.Errorf("original allow mutated: %v", orig.AllowPatterns)
	}
}

func TestExpandDirPatterns(t *testing.T) {
	got := ExpandDirPatterns([]string{"lib", "tests/unit"})
	want := []string{"lib/**", "tests/unit/**"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandDirPatterns = %v, want %v", got, want)
	}

	if ExpandDirPatterns(nil) != nil {
		t.Error("ExpandDirPatterns(nil) should be nil")
	}
}
