package hooks

import (
	"errors"
	"strings"
	"testing"
)

func TestContextEmitJoinsLines(t *testing.T) {
	ctx := &ExecutionContext{DirectiveName: "TEST"}

	ctx.Emit("line 1")
	ctx.Emit("line 2")

	if ctx.Output() != "line 1\nline 2" {
		t.Errorf("Output() = %q", ctx.Output())
	}
}

func TestContextErrorAccumulates(t *testing.T) {
	ctx := &ExecutionContext{DirectiveName: "TEST"}

	if ctx.HasErrors() {
		t.Error("fresh context should have no errors")
	}

	ctx.Errorf("error %d", 1)
	ctx.Errorf("error %d", 2)

	if !ctx.HasErrors() {
		t.Error("HasErrors should be true after Errorf")
	}
	if len(ctx.Errors()) != 2 || ctx.Errors()[0] != "error 1" {
		t.Errorf("Errors() = %v", ctx.Errors())
	}
}

func TestResultConstructors(t *testing.T) {
	ok := OK("hello")
	if !ok.Success || ok.Output != "hello" || !ok.InjectIntoPrompt {
		t.Errorf("OK result = %+v", ok)
	}

	quiet := OKNoInject("x")
	if !quiet.Success || quiet.InjectIntoPrompt {
		t.Errorf("OKNoInject result = %+v", quiet)
	}

	fail := Fail("a", "b")
	if fail.Success || len(fail.Errors) != 2 {
		t.Errorf("Fail result = %+v", fail)
	}
}

func TestRegisterAndGetCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	hook := func(ctx *ExecutionContext) (*ExecutionResult, error) {
		return OK(""), nil
	}

	reg.Register("CUSTOM", hook)

	if !reg.Has("CUSTOM") || !reg.Has("custom") {
		t.Error("lookup should be case-insensitive")
	}
	if reg.Get("cUsToM") == nil {
		t.Error("Get should find mixed-case name")
	}
}

func TestUnregisterAndClear(t *testing.T) {
	reg := NewRegistry()
	reg.Register("A", func(ctx *ExecutionContext) (*ExecutionResult, error) { return OK(""), nil })
	reg.Register("B", func(ctx *ExecutionContext) (*ExecutionResult, error) { return OK(""), nil })

	reg.Unregister("a")
	if reg.Has("A") {
		t.Error("A should be unregistered")
	}

	reg.Clear()
	if reg.Has("B") {
		t.Error("Clear should remove all hooks")
	}
}

func TestExecuteRegisteredHook(t *testing.T) {
	reg := NewRegistry()
	reg.Register("ECHO", func(ctx *ExecutionContext) (*ExecutionResult, error) {
		return OK("Ran " + ctx.DirectiveName + ": " + ctx.DirectiveValue), nil
	})

	result := reg.Execute("ECHO", "hello world", t.TempDir(), WithLine(5))

	if !result.Success {
		t.Fatalf("execute failed: %v", result.Errors)
	}
	if result.Output != "Ran ECHO: hello world" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestExecuteMissingHook(t *testing.T) {
	reg := NewRegistry()

	result := reg.Execute("UNKNOWN", "value", t.TempDir())

	if result.Success {
		t.Fatal("missing hook should fail")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "no execution hook") {
		t.Errorf("error = %q, should mention no execution hook", result.Errors[0])
	}
}

func TestExecuteHookError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("BAD", func(ctx *ExecutionContext) (*ExecutionResult, error) {
		return nil, errors.New("hook crashed!")
	})

	result := reg.Execute("BAD", "value", t.TempDir())

	if result.Success {
		t.Fatal("failing hook should produce failed result")
	}
	if !strings.Contains(result.Errors[0], "hook crashed!") {
		t.Errorf("error should embed the original fault, got %q", result.Errors[0])
	}
}

func TestExecuteHookPanicRecovered(t *testing.T) {
	reg := NewRegistry()
	reg.Register("PANIC", func(ctx *ExecutionContext) (*ExecutionResult, error) {
		panic("boom")
	})

	result := reg.Execute("PANIC", "", t.TempDir())

	if result.Success {
		t.Fatal("panicking hook should produce failed result")
	}
	if !strings.Contains(result.Errors[0], "boom") {
		t.Errorf("error should embed the panic value, got %q", result.Errors[0])
	}
}

func TestExecuteSessionLinkage(t *testing.T) {
	reg := NewRegistry()
	var gotSession string
	var gotCycle int
	reg.Register("CAPTURE", func(ctx *ExecutionContext) (*ExecutionResult, error) {
		gotSession = ctx.SessionID
		gotCycle = ctx.CycleNumber
		return OK(""), nil
	})

	reg.Execute("CAPTURE", "val", t.TempDir(), WithSession("sess-123", 5))

	if gotSession != "sess-123" || gotCycle != 5 {
		t.Errorf("session linkage = %q/%d, want sess-123/5", gotSession, gotCycle)
	}
}

func TestExecuteDefaultCycleNumber(t *testing.T) {
	reg := NewRegistry()
	var gotCycle int
	reg.Register("CYCLE", func(ctx *ExecutionContext) (*ExecutionResult, error) {
		gotCycle = ctx.CycleNumber
		return OK(""), nil
	})

	reg.Execute("CYCLE", "", t.TempDir())

	if gotCycle != 1 {
		t.Errorf("default cycle number = %d, want 1", gotCycle)
	}
}

func TestExecuteEmitPattern(t *testing.T) {
	reg := NewRegistry()
	reg.Register("VERBOSE", func(ctx *ExecutionContext) (*ExecutionResult, error) {
		ctx.Emit("Starting " + ctx.DirectiveName)
		ctx.Emit("Value: " + ctx.DirectiveValue)
		ctx.Emit("Done")
		return OK(ctx.Output()), nil
	})

	result := reg.Execute("VERBOSE", "test", t.TempDir())

	for _, want := range []string{"Starting VERBOSE", "Value: test", "Done"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("output missing %q: %q", want, result.Output)
		}
	}
}
