package adapter

import (
	"context"
	"strings"
	"testing"
)

func TestRegistryHasBuiltins(t *testing.T) {
	names := List()

	for _, want := range []string{"mock", "claude", "ws"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("adapter %q not registered (have %v)", want, names)
		}
	}
}

func TestLookupKnownAdapter(t *testing.T) {
	a, ok := Lookup("mock")
	if !ok {
		t.Fatal("mock adapter should be found")
	}
	if a.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", a.Name())
	}
}

func TestLookupUnknownFallsBackToMock(t *testing.T) {
	a, ok := Lookup("no-such-backend")
	if ok {
		t.Error("unknown adapter should report not found")
	}
	if a == nil || a.Name() != "mock" {
		t.Fatalf("fallback should be the mock adapter, got %v", a)
	}
}

func TestMockDeterministicResponses(t *testing.T) {
	ctx := context.Background()
	a := &MockAdapter{}

	run := func() []string {
		sess, err := a.CreateSession(ctx, Config{Model: "mock"})
		if err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		defer a.DestroySession(ctx, sess)

		var out []string
		for _, prompt := range []string{"First prompt.", "Second prompt."} {
			resp, err := a.Send(ctx, sess, prompt, nil)
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			out = append(out, resp)
		}
		return out
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run mismatch at %d: %q vs %q", i, first[i], second[i])
		}
	}
	if !strings.Contains(first[0], "First prompt.") {
		t.Errorf("response should echo the prompt head: %q", first[0])
	}
	if !strings.Contains(first[1], "turn 2") {
		t.Errorf("response should carry the turn counter: %q", first[1])
	}
}

func TestMockStreamingChunks(t *testing.T) {
	ctx := context.Background()
	a := &MockAdapter{}

	sess, err := a.CreateSession(ctx, Config{Model: "mock", Streaming: true})
	if err != nil {
		t.Fatal(err)
	}

	var streamed strings.Builder
	resp, err := a.Send(ctx, sess, "Stream me.", func(chunk string) {
		streamed.WriteString(chunk)
	})
	if err != nil {
		t.Fatal(err)
	}

	if streamed.String() != resp {
		t.Errorf("streamed %q != response %q", streamed.String(), resp)
	}
}

func TestMockTurnCounterResetsPerSession(t *testing.T) {
	ctx := context.Background()
	a := &MockAdapter{}

	s1, _ := a.CreateSession(ctx, Config{})
	a.Send(ctx, s1, "one", nil)
	a.Send(ctx, s1, "two", nil)

	s2, _ := a.CreateSession(ctx, Config{})
	resp, err := a.Send(ctx, s2, "fresh", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp, "turn 1") {
		t.Errorf("new session should restart turn numbering: %q", resp)
	}
}

func TestClaudeParseOutputSingleObject(t *testing.T) {
	out, err := parseClaudeOutput([]byte(`{"type":"result","result":"answer","session_id":"abc"}`))
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != "answer" || out.SessionID != "abc" {
		t.Errorf("parsed = %+v", out)
	}
}

func TestClaudeParseOutputStreamJSON(t *testing.T) {
	data := []byte(`{"type":"system","result":""}
{"type":"assistant","result":""}
{"type":"result","result":"final answer","session_id":"xyz"}`)

	out, err := parseClaudeOutput(data)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result != "final answer" || out.SessionID != "xyz" {
		t.Errorf("parsed = %+v", out)
	}
}

func TestClaudeParseOutputGarbage(t *testing.T) {
	if _, err := parseClaudeOutput([]byte("not json at all")); err == nil {
		t.Error("garbage output should fail to parse")
	}
}

func TestWSAdapterRequiresURL(t *testing.T) {
	a := &WSAdapter{}
	if err := a.Start(context.Background()); err == nil {
		t.Error("Start without URL should fail")
	}
}
