package llm

import (
	"testing"

	"go.uber.org/zap"
)

func TestRegisterFactory_CreateProviderUsesType(t *testing.T) {
	RegisterFactory("test-fake", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		return &fakeProvider{name: cfg.Name}
	})

	p, err := CreateProvider(ProviderConfig{Name: "x", Type: "test-fake"}, zap.NewNop())
	if err != nil {
		t.Fatalf("CreateProvider returned error: %v", err)
	}
	if p.Name() != "x" {
		t.Fatalf("expected provider name %q, got %q", "x", p.Name())
	}
}

func TestCreateProvider_EmptyTypeDefaultsToOpenAI(t *testing.T) {
	RegisterFactory("openai", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		return &fakeProvider{name: "openai-default"}
	})

	p, err := CreateProvider(ProviderConfig{Name: "untyped"}, zap.NewNop())
	if err != nil {
		t.Fatalf("CreateProvider returned error: %v", err)
	}
	if p.Name() != "openai-default" {
		t.Fatalf("expected default factory to be used, got provider %q", p.Name())
	}
}

func TestCreateProvider_UnknownTypeErrors(t *testing.T) {
	_, err := CreateProvider(ProviderConfig{Name: "x", Type: "does-not-exist"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unregistered provider type")
	}
}
