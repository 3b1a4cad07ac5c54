package hookdispatch

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func TestDispatcher_FiresInPriorityOrder(t *testing.T) {
	d := New(zap.NewNop())
	var order []string

	d.SetHooks([]HookSpec{
		{Name: "low", Event: PreToolCall, Priority: 1, Type: ExecCommand, Command: []string{"true"}},
		{Name: "high", Event: PreToolCall, Priority: 10, Type: ExecCommand, Command: []string{"true"}},
		{Name: "mid", Event: PreToolCall, Priority: 5, Type: ExecCommand, Command: []string{"true"}},
	})

	// run() has no observable side effect we can hook without exec'ing real
	// processes, so assert on the sorted internal order directly instead.
	d.mu.RLock()
	for _, s := range d.hooks[PreToolCall] {
		order = append(order, s.Name)
	}
	d.mu.RUnlock()

	want := []string{"high", "mid", "low"}
	if len(order) != len(want) {
		t.Fatalf("expected %d hooks, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestDispatcher_FireSkipsNonMatchingFilePattern(t *testing.T) {
	d := New(zap.NewNop())
	d.SetHooks([]HookSpec{
		{Name: "go-only", Event: PreToolCall, FilePatterns: []string{"*.go"}, Type: ExecCommand, Command: []string{"true"}},
	})

	if err := d.Fire(context.Background(), Context{Event: PreToolCall, ModifiedFiles: []string{"README.md"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestDispatcher_FireAndCombinesToolsAndFilePatterns exercises spec §8
// Scenario E directly via matchSpec — exec.Command's "true"/"false" has no
// observable side effect to assert on through Fire, so the predicate itself
// is checked instead (same approach dispatcher_test.go already takes for
// priority ordering).
func TestDispatcher_FireAndCombinesToolsAndFilePatterns(t *testing.T) {
	spec := HookSpec{
		Name:         "auto-format",
		Event:        PostToolCall,
		Tools:        []string{"WriteFile"},
		FilePatterns: []string{"*.java"},
		Type:         ExecCommand,
		Command:      []string{"true"},
	}

	// Right tool, wrong file extension: must not match.
	if matched, _, err := matchSpec(spec, Context{
		ToolName:      "WriteFile",
		ModifiedFiles: []string{"/src/bar.txt"},
	}); err != nil || matched {
		t.Fatalf("expected no match for right tool / wrong extension, matched=%v err=%v", matched, err)
	}

	// Wrong tool, right file extension: must not match.
	if matched, _, err := matchSpec(spec, Context{
		ToolName:      "ReadFile",
		ModifiedFiles: []string{"/src/Foo.java"},
	}); err != nil || matched {
		t.Fatalf("expected no match for wrong tool / right extension, matched=%v err=%v", matched, err)
	}

	// Right tool AND right file extension, amid an unrelated file: must
	// match, and matchedFiles must contain only the file that matched.
	matched, matchedFiles, err := matchSpec(spec, Context{
		ToolName:      "WriteFile",
		ModifiedFiles: []string{"/src/Foo.java", "/src/bar.txt"},
	})
	if err != nil {
		t.Fatalf("matchSpec error: %v", err)
	}
	if !matched {
		t.Fatal("expected hook to match when both tool and file pattern match")
	}
	if len(matchedFiles) != 1 || matchedFiles[0] != "/src/Foo.java" {
		t.Fatalf("expected matchedFiles to contain only the matching file, got %v", matchedFiles)
	}
}

func TestMatchSpec_AgentNameAndErrorPattern(t *testing.T) {
	spec := HookSpec{AgentName: "reviewer", ErrorPattern: "timeout"}

	matched, _, err := matchSpec(spec, Context{AgentName: "reviewer", Error: fmt.Errorf("connection timeout")})
	if err != nil {
		t.Fatalf("matchSpec error: %v", err)
	}
	if !matched {
		t.Fatal("expected match when agent_name and error_pattern both match")
	}

	matched, _, err = matchSpec(spec, Context{AgentName: "other", Error: fmt.Errorf("connection timeout")})
	if err != nil {
		t.Fatalf("matchSpec error: %v", err)
	}
	if matched {
		t.Fatal("expected no match when agent_name differs")
	}

	matched, _, err = matchSpec(spec, Context{AgentName: "reviewer", Error: fmt.Errorf("not found")})
	if err != nil {
		t.Fatalf("matchSpec error: %v", err)
	}
	if matched {
		t.Fatal("expected no match when error_pattern does not match the error message")
	}
}

func TestDispatcher_MandatoryFailureStopsChain(t *testing.T) {
	d := New(zap.NewNop())
	d.SetHooks([]HookSpec{
		{Name: "fails", Event: OnError, Type: ExecCommand, Command: []string{"false"}, Mandatory: true},
	})

	err := d.Fire(context.Background(), Context{Event: OnError})
	if err == nil {
		t.Fatal("expected mandatory hook failure to propagate")
	}
}

func TestDispatcher_NonMandatoryFailureContinues(t *testing.T) {
	d := New(zap.NewNop())
	d.SetHooks([]HookSpec{
		{Name: "fails", Event: OnError, Type: ExecCommand, Command: []string{"false"}},
		{Name: "succeeds", Event: OnError, Type: ExecCommand, Command: []string{"true"}},
	})

	if err := d.Fire(context.Background(), Context{Event: OnError}); err != nil {
		t.Fatalf("expected non-mandatory failure to be swallowed, got %v", err)
	}
}

func TestDispatcher_CompositeContinueOnFailure(t *testing.T) {
	d := New(zap.NewNop())
	d.SetHooks([]HookSpec{
		{
			Name:  "composite",
			Event: PostToolCall,
			Type:  ExecComposite,
			Steps: []HookSpec{
				{Name: "step1", Type: ExecCommand, Command: []string{"false"}, ContinueOnFailure: true},
				{Name: "step2", Type: ExecCommand, Command: []string{"true"}},
			},
		},
	})

	if err := d.Fire(context.Background(), Context{Event: PostToolCall}); err != nil {
		t.Fatalf("expected composite with continue_on_failure step to succeed overall, got %v", err)
	}
}

func TestDispatcher_CompositeStopsWithoutContinueOnFailure(t *testing.T) {
	d := New(zap.NewNop())
	d.SetHooks([]HookSpec{
		{
			Name:      "composite",
			Event:     PostToolCall,
			Type:      ExecComposite,
			Mandatory: true,
			Steps: []HookSpec{
				{Name: "step1", Type: ExecCommand, Command: []string{"false"}},
				{Name: "step2", Type: ExecCommand, Command: []string{"true"}},
			},
		},
	})

	if err := d.Fire(context.Background(), Context{Event: PostToolCall}); err == nil {
		t.Fatal("expected composite without continue_on_failure to abort on first failing step")
	}
}
