package llm

import (
	"context"
	"testing"
)

type nameOnlyProvider struct{ name string }

func (n nameOnlyProvider) Name() string { return n.name }
func (n nameOnlyProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func TestParseModelIDSplitsProviderAndModel(t *testing.T) {
	provider, model, err := ParseModelID("openai/gpt-4o")
	if err != nil {
		t.Fatalf("ParseModelID returned error: %v", err)
	}
	if provider != "openai" || model != "gpt-4o" {
		t.Fatalf("expected openai/gpt-4o split, got %q/%q", provider, model)
	}
}

func TestParseModelIDRejectsMissingSlash(t *testing.T) {
	_, _, err := ParseModelID("gpt-4o")
	if err == nil {
		t.Fatalf("expected an error for a model ID with no provider prefix")
	}
}

func TestParseModelIDRejectsEmptyHalves(t *testing.T) {
	if _, _, err := ParseModelID("/gpt-4o"); err == nil {
		t.Fatalf("expected an error for an empty provider half")
	}
	if _, _, err := ParseModelID("openai/"); err == nil {
		t.Fatalf("expected an error for an empty model half")
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", nameOnlyProvider{name: "openai"})
	p, ok := r.Get("openai")
	if !ok || p.Name() != "openai" {
		t.Fatalf("expected registered provider to be retrievable")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected Get to report false for an unregistered name")
	}
}

func TestRegistryResolveByModelID(t *testing.T) {
	r := NewRegistry()
	r.Register("gemini", nameOnlyProvider{name: "gemini"})
	p, err := r.Resolve("gemini/gemini-2.0-flash")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if p.Name() != "gemini" {
		t.Fatalf("expected gemini provider resolved, got %q", p.Name())
	}
}

func TestRegistryResolveUnknownProviderErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("unknown/model")
	if err == nil {
		t.Fatalf("expected an error for an unregistered provider")
	}
}
