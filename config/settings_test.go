package config

import (
	"os"
	"testing"

	"github.com/richinex/hermes/llm"
	"github.com/richinex/hermes/memory"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Provider.Type != llm.ProviderOpenAI {
		t.Errorf("expected openai, got %v", settings.Provider.Type)
	}
	if settings.Memory.HistoryLimit != memory.DefaultHistoryLimit {
		t.Errorf("history limit = %d", settings.Memory.HistoryLimit)
	}
	if settings.Storage.Backend != "file" || settings.Storage.Dir != ".hermes" {
		t.Errorf("storage defaults = %+v", settings.Storage)
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Provider.Type != llm.ProviderAnthropic {
		t.Errorf("expected anthropic (normalized from 'claude'), got %v", settings.Provider.Type)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("unknown_provider"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewWithEnvOverrides(t *testing.T) {
	t.Setenv("HERMES_HISTORY_LIMIT", "20")
	t.Setenv("HERMES_STORAGE", "sqlite")
	t.Setenv("HERMES_DATA_DIR", "/var/lib/hermes")
	t.Setenv("OPENAI_MODEL", "gpt-5")

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Memory.HistoryLimit != 20 {
		t.Errorf("history limit = %d, want 20", settings.Memory.HistoryLimit)
	}
	if settings.Storage.Backend != "sqlite" || settings.Storage.Dir != "/var/lib/hermes" {
		t.Errorf("storage = %+v", settings.Storage)
	}
	if settings.Provider.Model != "gpt-5" {
		t.Errorf("model override = %q", settings.Provider.Model)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	t.Setenv("HERMES_HISTORY_LIMIT", "not-a-number")
	if _, err := New("openai"); err == nil {
		t.Error("expected error for invalid HERMES_HISTORY_LIMIT")
	}
}

func TestNewWithInvalidStorage(t *testing.T) {
	t.Setenv("HERMES_STORAGE", "redis")
	if _, err := New("openai"); err == nil {
		t.Error("expected error for unsupported storage backend")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}

func TestModelDefaultsEmpty(t *testing.T) {
	original := os.Getenv("OPENAI_MODEL")
	os.Unsetenv("OPENAI_MODEL")
	defer os.Setenv("OPENAI_MODEL", original)

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Empty means "use the provider default".
	if settings.Provider.Model != "" {
		t.Errorf("model = %q, want empty", settings.Provider.Model)
	}
}
