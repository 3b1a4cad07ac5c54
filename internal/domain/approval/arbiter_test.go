package approval

import (
	"context"
	"testing"
	"time"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/domain/wire"
	"go.uber.org/zap"
)

func TestArbiter_SafeKindNeverAsks(t *testing.T) {
	a := New(Interactive, wire.New(zap.NewNop(), 4), zap.NewNop())

	decision, err := a.Request(context.Background(), "tc1", domaintool.KindRead, "read file", "reading foo.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != Allow {
		t.Fatalf("expected safe kind to auto-allow, got %q", decision)
	}
}

func TestArbiter_YOLOAllowsMutators(t *testing.T) {
	a := New(YOLO, wire.New(zap.NewNop(), 4), zap.NewNop())

	decision, err := a.Request(context.Background(), "tc1", domaintool.KindExecute, "run command", "rm -rf /tmp/scratch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != Allow {
		t.Fatalf("expected YOLO mode to auto-allow, got %q", decision)
	}
}

func TestArbiter_ReadOnlyDeniesMutators(t *testing.T) {
	a := New(ReadOnly, wire.New(zap.NewNop(), 4), zap.NewNop())

	decision, err := a.Request(context.Background(), "tc1", domaintool.KindEdit, "write file", "writing foo.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != Deny {
		t.Fatalf("expected read_only mode to deny mutators, got %q", decision)
	}
}

func TestArbiter_InteractiveWaitsForDecide(t *testing.T) {
	a := New(Interactive, wire.New(zap.NewNop(), 4), zap.NewNop())

	resultCh := make(chan Decision, 1)
	go func() {
		d, err := a.Request(context.Background(), "tc1", domaintool.KindEdit, "write file", "writing foo.go")
		if err != nil {
			t.Error(err)
		}
		resultCh <- d
	}()

	// give Request time to register the pending request
	time.Sleep(20 * time.Millisecond)
	if err := a.Decide("tc1", Allow); err != nil {
		t.Fatalf("unexpected error deciding: %v", err)
	}

	select {
	case d := <-resultCh:
		if d != Allow {
			t.Fatalf("expected Allow, got %q", d)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Request to return")
	}
}

func TestArbiter_AllowAlwaysCachesByKind(t *testing.T) {
	a := New(Interactive, wire.New(zap.NewNop(), 4), zap.NewNop())

	go func() {
		time.Sleep(20 * time.Millisecond)
		a.Decide("tc1", AllowAlways)
	}()
	if _, err := a.Request(context.Background(), "tc1", domaintool.KindEdit, "write file", "first edit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decision, err := a.Request(context.Background(), "tc2", domaintool.KindEdit, "write file", "second edit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != Allow {
		t.Fatalf("expected cached allow for same kind, got %q", decision)
	}
}

func TestArbiter_ContextCancelDefaultsToDeny(t *testing.T) {
	a := New(Interactive, wire.New(zap.NewNop(), 4), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decision, err := a.Request(ctx, "tc1", domaintool.KindExecute, "run command", "some command")
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if decision != Deny {
		t.Fatalf("expected Deny on cancellation, got %q", decision)
	}
}

func TestArbiter_DecideUnknownRequest(t *testing.T) {
	a := New(Interactive, wire.New(zap.NewNop(), 4), zap.NewNop())
	if err := a.Decide("does-not-exist", Allow); err == nil {
		t.Fatal("expected error deciding an unknown request")
	}
}
