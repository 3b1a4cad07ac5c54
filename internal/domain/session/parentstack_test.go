package session

import "testing"

func TestParentStack_PushPopDepth(t *testing.T) {
	p := NewParentStack(2)

	if got := p.Depth(); got != 0 {
		t.Fatalf("expected depth 0, got %d", got)
	}

	first, err := p.Push("cp1", "thinking about x", "sub-goal A")
	if err != nil {
		t.Fatalf("unexpected error on first push: %v", err)
	}
	if first.Depth != 1 {
		t.Fatalf("expected depth 1, got %d", first.Depth)
	}

	second, err := p.Push("cp2", "thinking about y", "sub-goal B")
	if err != nil {
		t.Fatalf("unexpected error on second push: %v", err)
	}
	if second.Depth != 2 {
		t.Fatalf("expected depth 2, got %d", second.Depth)
	}

	if _, err := p.Push("cp3", "thinking about z", "sub-goal C"); err == nil {
		t.Fatal("expected error pushing past maxDepth")
	}

	popped, ok := p.Pop()
	if !ok {
		t.Fatal("expected Pop to succeed")
	}
	if popped.CheckpointID != "cp2" {
		t.Fatalf("expected LIFO pop of cp2, got %q", popped.CheckpointID)
	}
	if got := p.Depth(); got != 1 {
		t.Fatalf("expected depth 1 after pop, got %d", got)
	}
}

func TestParentStack_PopEmpty(t *testing.T) {
	p := NewParentStack(0)
	if _, ok := p.Pop(); ok {
		t.Fatal("expected Pop on empty stack to return ok=false")
	}
}

func TestRenderResumeBanner(t *testing.T) {
	banner := RenderResumeBanner(ParentContext{SubGoal: "audit logs", LatestThought: "found the culprit"})
	if banner == "" {
		t.Fatal("expected non-empty banner")
	}
}
