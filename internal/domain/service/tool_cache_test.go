package service

import (
	"testing"
	"time"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
)

func TestToolCache_PutGet(t *testing.T) {
	cache := NewToolResultCache(5*time.Second, 100)

	args := map[string]interface{}{"path": "main.go"}
	cache.Put("read_file", args, "file contents", true)

	output, success, hit := cache.Get("read_file", args)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if output != "file contents" {
		t.Fatalf("expected 'file contents', got %q", output)
	}
	if !success {
		t.Fatal("expected success=true")
	}
}

func TestToolCache_Miss(t *testing.T) {
	cache := NewToolResultCache(5*time.Second, 100)

	_, _, hit := cache.Get("read_file", map[string]interface{}{"path": "missing"})
	if hit {
		t.Fatal("expected cache miss")
	}
}

func TestToolCache_TTLExpiry(t *testing.T) {
	cache := NewToolResultCache(10*time.Millisecond, 100)

	args := map[string]interface{}{"x": 1}
	cache.Put("test_tool", args, "result", true)

	if _, _, hit := cache.Get("test_tool", args); !hit {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(15 * time.Millisecond)

	if _, _, hit := cache.Get("test_tool", args); hit {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestToolCache_MaxSizeEviction(t *testing.T) {
	cache := NewToolResultCache(5*time.Second, 3) // max 3 entries

	cache.Put("tool1", nil, "r1", true)
	time.Sleep(time.Millisecond)
	cache.Put("tool2", nil, "r2", true)
	time.Sleep(time.Millisecond)
	cache.Put("tool3", nil, "r3", true)
	time.Sleep(time.Millisecond)

	if cache.Size() != 3 {
		t.Fatalf("expected 3 entries, got %d", cache.Size())
	}

	cache.Put("tool4", nil, "r4", true)
	if cache.Size() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", cache.Size())
	}

	if _, _, hit := cache.Get("tool1", nil); hit {
		t.Fatal("tool1 should have been evicted")
	}

	output, _, hit := cache.Get("tool4", nil)
	if !hit {
		t.Fatal("tool4 should be present")
	}
	if output != "r4" {
		t.Fatalf("expected 'r4', got %q", output)
	}
}

func TestToolCache_Clear(t *testing.T) {
	cache := NewToolResultCache(5*time.Second, 100)
	cache.Put("tool", nil, "result", true)

	if cache.Size() != 1 {
		t.Fatal("expected 1 entry")
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Fatal("expected 0 entries after clear")
	}
}

func TestToolCache_DifferentArgs(t *testing.T) {
	cache := NewToolResultCache(5*time.Second, 100)

	args1 := map[string]interface{}{"path": "a.go"}
	args2 := map[string]interface{}{"path": "b.go"}

	cache.Put("read_file", args1, "content_a", true)
	cache.Put("read_file", args2, "content_b", true)

	output1, _, hit1 := cache.Get("read_file", args1)
	if !hit1 || output1 != "content_a" {
		t.Fatalf("expected 'content_a', got %q (hit=%v)", output1, hit1)
	}

	output2, _, hit2 := cache.Get("read_file", args2)
	if !hit2 || output2 != "content_b" {
		t.Fatalf("expected 'content_b', got %q (hit=%v)", output2, hit2)
	}
}

func TestCacheable_OnlySafeKinds(t *testing.T) {
	cases := []struct {
		kind domaintool.Kind
		want bool
	}{
		{domaintool.KindRead, true},
		{domaintool.KindSearch, true},
		{domaintool.KindThink, true},
		{domaintool.KindEdit, false},
		{domaintool.KindDelete, false},
		{domaintool.KindExecute, false},
		{domaintool.KindFetch, false},
		{domaintool.KindCommunicate, false},
	}
	for _, c := range cases {
		if got := Cacheable(c.kind); got != c.want {
			t.Errorf("Cacheable(%s) = %v, want %v", c.kind, got, c.want)
		}
	}
}
