package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/jimi-run/jimi-core/internal/domain/service"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name      string
	models    []string
	available bool
	err       error
	resp      *service.LLMResponse
	calls     int
}

func (f *fakeProvider) Name() string                                { return f.name }
func (f *fakeProvider) Models() []string                            { return f.models }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool        { return f.available }
func (f *fakeProvider) SupportsModel(model string) bool {
	for _, m := range f.models {
		if m == model {
			return true
		}
	}
	return false
}

func (f *fakeProvider) Generate(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) GenerateStream(ctx context.Context, req *service.LLMRequest, deltaCh chan<- service.StreamChunk) (*service.LLMResponse, error) {
	close(deltaCh)
	return f.Generate(ctx, req)
}

func TestRouter_SkipsUnsupportedModel(t *testing.T) {
	r := NewRouter(zap.NewNop())
	p := &fakeProvider{name: "a", models: []string{"gpt-4"}, available: true, resp: &service.LLMResponse{Content: "ok"}}
	r.AddProvider(p)

	_, err := r.Generate(context.Background(), &service.LLMRequest{Model: "claude-3"})
	if err == nil {
		t.Fatal("expected error when no provider supports the requested model")
	}
	if p.calls != 0 {
		t.Fatalf("expected provider not to be called, got %d calls", p.calls)
	}
}

func TestRouter_FailsOverToNextProvider(t *testing.T) {
	r := NewRouter(zap.NewNop())
	bad := &fakeProvider{name: "bad", models: []string{"gpt-4"}, available: true, err: errors.New("boom")}
	good := &fakeProvider{name: "good", models: []string{"gpt-4"}, available: true, resp: &service.LLMResponse{Content: "ok"}}
	r.AddProvider(bad)
	r.AddProvider(good)

	resp, err := r.Generate(context.Background(), &service.LLMRequest{Model: "gpt-4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("expected fallback provider's response, got %+v", resp)
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Fatalf("expected both providers tried once, got bad=%d good=%d", bad.calls, good.calls)
	}
}

func TestRouter_SkipsUnavailableProvider(t *testing.T) {
	r := NewRouter(zap.NewNop())
	down := &fakeProvider{name: "down", models: []string{"gpt-4"}, available: false}
	up := &fakeProvider{name: "up", models: []string{"gpt-4"}, available: true, resp: &service.LLMResponse{Content: "ok"}}
	r.AddProvider(down)
	r.AddProvider(up)

	if _, err := r.Generate(context.Background(), &service.LLMRequest{Model: "gpt-4"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if down.calls != 0 {
		t.Fatal("expected unavailable provider never to be called")
	}
}

func TestRouter_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	r := NewRouter(zap.NewNop())
	p := &fakeProvider{name: "flaky", models: []string{"gpt-4"}, available: true, err: errors.New("down")}
	r.AddProvider(p)

	for i := 0; i < 5; i++ {
		r.Generate(context.Background(), &service.LLMRequest{Model: "gpt-4"})
	}
	calls := p.calls
	if calls != 5 {
		t.Fatalf("expected 5 calls before the circuit opens, got %d", calls)
	}

	if _, err := r.Generate(context.Background(), &service.LLMRequest{Model: "gpt-4"}); err == nil {
		t.Fatal("expected an error once the circuit opens")
	}
	if p.calls != calls {
		t.Fatalf("expected no additional provider call once circuit is open, got %d", p.calls)
	}
}

func TestRouter_ListProviders(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.AddProvider(&fakeProvider{name: "a", models: []string{"gpt-4"}, available: true, resp: &service.LLMResponse{Content: "ok"}})

	statuses := r.ListProviders(context.Background())
	if len(statuses) != 1 {
		t.Fatalf("expected 1 provider status, got %d", len(statuses))
	}
	if statuses[0].Name != "a" || !statuses[0].Available {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
}
