package verify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestLookupKnownVerifiers(t *testing.T) {
	for _, name := range []string{"refs", "links", "terminology", "traceability", "assertions"} {
		v, ok := Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q) not found", name)
			continue
		}
		if v.Name() != name {
			t.Errorf("verifier %q reports name %q", name, v.Name())
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("Lookup(nope) should fail")
	}
}

func TestRunUnknownVerifier(t *testing.T) {
	if _, err := Run("bogus", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown verifier")
	}
}

func TestRefsValidAndBroken(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "exists.txt", "hi")
	writeFile(t, root, "doc.md", "See @exists.txt and @missing.txt for details.\n")

	res, err := Run("refs", root)
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	if res.Passed {
		t.Error("expected failure with a broken ref")
	}
	if res.Details["refs_found"] != 2 {
		t.Errorf("refs_found = %d, want 2", res.Details["refs_found"])
	}
	if res.Details["refs_valid"] != 1 || res.Details["refs_broken"] != 1 {
		t.Errorf("valid/broken = %d/%d, want 1/1", res.Details["refs_valid"], res.Details["refs_broken"])
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "missing.txt") {
		t.Errorf("unexpected errors: %+v", res.Errors)
	}
}

func TestRefsIgnoresAnnotations(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api.md", "Use @param name and @returns here, @deprecated too.\n")

	res, err := Run("refs", root)
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	if res.Details["refs_found"] != 0 {
		t.Errorf("annotations counted as refs: %d", res.Details["refs_found"])
	}
	if !res.Passed {
		t.Error("expected pass")
	}
}

func TestRefsRelativeToContainingFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/data.txt", "x")
	writeFile(t, root, "docs/guide.md", "Load @./data.txt first.\n")

	res, err := Run("refs", root)
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	if !res.Passed {
		t.Errorf("expected pass, errors: %+v", res.Errors)
	}
	if res.Details["refs_valid"] != 1 {
		t.Errorf("refs_valid = %d, want 1", res.Details["refs_valid"])
	}
}

func TestRefsSkipsCodeFences(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.md", "```\n@not-real.txt\n```\n")

	res, err := Run("refs", root)
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	if res.Details["refs_found"] != 0 {
		t.Errorf("fenced ref counted: %d", res.Details["refs_found"])
	}
}

func TestLinksCategories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "target.md", "# Target\n")
	writeFile(t, root, "doc.md", strings.Join([]string{
		"[good](target.md)",
		"[bad](gone.md)",
		"[ext](https://example.com/page)",
		"[anchor](#section)",
		"[file-anchor](target.md#target)",
		"",
	}, "\n"))

	res, err := Run("links", root)
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if res.Details["links_found"] != 5 {
		t.Errorf("links_found = %d, want 5", res.Details["links_found"])
	}
	if res.Details["links_external"] != 1 {
		t.Errorf("links_external = %d, want 1", res.Details["links_external"])
	}
	if res.Details["links_valid"] != 3 {
		t.Errorf("links_valid = %d, want 3", res.Details["links_valid"])
	}
	if res.Details["links_broken"] != 1 {
		t.Errorf("links_broken = %d, want 1", res.Details["links_broken"])
	}
	if res.Passed {
		t.Error("expected failure with a broken link")
	}
}

func TestLinksSubdirectoryResolution(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/other.md", "x")
	writeFile(t, root, "sub/doc.md", "[sibling](other.md)\n")

	res, err := Run("links", root)
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if !res.Passed {
		t.Errorf("expected pass, errors: %+v", res.Errors)
	}
}

func TestTerminologyNoConfigPasses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.md", "whitelist all the things\n")

	res, err := Run("terminology", root)
	if err != nil {
		t.Fatalf("terminology: %v", err)
	}
	if !res.Passed {
		t.Error("expected pass without a rules file")
	}
	if res.Details["rules_loaded"] != 0 {
		t.Errorf("rules_loaded = %d, want 0", res.Details["rules_loaded"])
	}
}

func TestTerminologyViolations(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "terminology.yml", "rules:\n  - avoid: whitelist\n    prefer: allowlist\n    reason: inclusive naming\n")
	writeFile(t, root, "doc.md", "Add it to the WHITELIST.\nThis line is fine.\n")

	res, err := Run("terminology", root)
	if err != nil {
		t.Fatalf("terminology: %v", err)
	}
	if res.Passed {
		t.Error("expected failure")
	}
	if res.Details["violations"] != 1 {
		t.Errorf("violations = %d, want 1", res.Details["violations"])
	}
	e := res.Errors[0]
	if e.Line != 1 || !strings.Contains(e.FixHint, "allowlist") {
		t.Errorf("unexpected error: %+v", e)
	}
}

func TestTraceability(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "spec.md", "# REQ-1 parsing\n\nImplements REQ-1 and depends on REQ-2.\n")

	res, err := Run("traceability", root)
	if err != nil {
		t.Fatalf("traceability: %v", err)
	}
	if res.Passed {
		t.Error("expected failure for undefined REQ-2")
	}
	if res.Details["ids_defined"] != 1 {
		t.Errorf("ids_defined = %d, want 1", res.Details["ids_defined"])
	}
	if res.Details["ids_unresolved"] != 1 {
		t.Errorf("ids_unresolved = %d, want 1", res.Details["ids_unresolved"])
	}
	if !strings.Contains(res.Errors[0].Message, "REQ-2") {
		t.Errorf("unexpected error: %+v", res.Errors[0])
	}
}

func TestAssertions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "data.txt", "hello world")
	writeFile(t, root, "doc.md", strings.Join([]string{
		`<!-- ASSERT exists data.txt -->`,
		`<!-- ASSERT contains data.txt "hello" -->`,
		`<!-- ASSERT contains data.txt "absent" -->`,
		`<!-- ASSERT exists nothing.txt -->`,
		"",
	}, "\n"))

	res, err := Run("assertions", root)
	if err != nil {
		t.Fatalf("assertions: %v", err)
	}
	if res.Details["assertions_found"] != 4 {
		t.Errorf("assertions_found = %d, want 4", res.Details["assertions_found"])
	}
	if res.Details["assertions_passed"] != 2 || res.Details["assertions_failed"] != 2 {
		t.Errorf("passed/failed = %d/%d, want 2/2",
			res.Details["assertions_passed"], res.Details["assertions_failed"])
	}
}

func TestResultMarkdown(t *testing.T) {
	res := &Result{
		Verifier: "refs",
		Passed:   false,
		Summary:  "1 errors, 0 warnings",
		Errors:   []Error{{File: "doc.md", Line: 3, Message: "broken reference @x.txt", FixHint: "fix it"}},
	}
	md := res.Markdown()
	if !strings.Contains(md, "❌ Failed") {
		t.Errorf("missing failure marker: %q", md)
	}
	if !strings.Contains(md, "doc.md:3") {
		t.Errorf("missing location: %q", md)
	}

	pass := &Result{Verifier: "links", Passed: true, Summary: "0 errors, 0 warnings"}
	if !strings.Contains(pass.Markdown(), "✅ Passed") {
		t.Error("missing pass marker")
	}
}
