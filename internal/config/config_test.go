package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8090" {
		t.Fatalf("expected default addr, got %q", cfg.HTTP.Addr)
	}
	if got := len(cfg.Providers.Order); got != 5 || cfg.Providers.Order[0] != "groq" {
		t.Fatalf("unexpected default order %v", cfg.Providers.Order)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Fatalf("unexpected chunking defaults %+v", cfg.Chunking)
	}
	if cfg.Providers.Placeholder.Enabled {
		t.Fatalf("placeholder must be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CG_HTTP_ADDR", ":9000")
	t.Setenv("CG_PROVIDERS_ORDER", "Ollama, placeholder")
	t.Setenv("CG_PROBE_TIMEOUT", "2s")
	t.Setenv("CG_PLACEHOLDER_ENABLED", "yes")
	t.Setenv("CG_GROQ_API_KEY", "gsk_cg")
	t.Setenv("GROQ_API_KEY", "gsk_plain")
	t.Setenv("DEEPSEEK_API_KEY", "ds_plain")
	t.Setenv("GOOGLE_API_KEY", "google_plain")
	t.Setenv("CG_OLLAMA_URL", "http://ollama:11434")
	t.Setenv("CG_CHUNK_SIZE", "500")
	t.Setenv("CG_CHUNK_OVERLAP", "50")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("expected http addr override")
	}
	if len(cfg.Providers.Order) != 2 || cfg.Providers.Order[0] != "ollama" {
		t.Fatalf("expected order override, got %v", cfg.Providers.Order)
	}
	if cfg.Providers.ProbeTimeout != 2*time.Second {
		t.Fatalf("expected probe timeout override")
	}
	if !cfg.Providers.Placeholder.Enabled {
		t.Fatalf("expected placeholder enabled")
	}
	if cfg.Providers.Groq.APIKey != "gsk_cg" {
		t.Fatalf("CG_ key must win over plain key, got %q", cfg.Providers.Groq.APIKey)
	}
	if cfg.Providers.DeepSeek.APIKey != "ds_plain" {
		t.Fatalf("expected plain deepseek key")
	}
	if cfg.Providers.Gemini.APIKey != "google_plain" {
		t.Fatalf("expected GOOGLE_API_KEY for gemini")
	}
	if cfg.Providers.Ollama.BaseURL != "http://ollama:11434" {
		t.Fatalf("expected ollama url override")
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Fatalf("expected chunking override")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coursegen.yaml")
	data := []byte(`
http:
  addr: ":7000"
providers:
  order: [deepseek, openai]
  openai:
    model: gpt-4o
    timeout: 30s
retrieval:
  lesson_results: 4
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":7000" || cfg.Providers.Order[1] != "openai" {
		t.Fatalf("file values not applied: %+v", cfg.HTTP)
	}
	if cfg.Providers.OpenAI.Model != "gpt-4o" || cfg.Providers.OpenAI.Timeout != 30*time.Second {
		t.Fatalf("provider section not applied: %+v", cfg.Providers.OpenAI)
	}
	if cfg.Retrieval.LessonResults != 4 || cfg.Retrieval.MinChunkChars != 50 {
		t.Fatalf("retrieval merge wrong: %+v", cfg.Retrieval)
	}
}

func TestLoadRejectsBadOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("providers:\n  order: []\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty providers.order")
	}

	t.Setenv("CG_PROVIDERS_ORDER", "groq,claude")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	t.Setenv("CG_PROVIDERS_ORDER", "groq,groq")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for duplicate provider")
	}
}

func TestLoadRejectsOverlap(t *testing.T) {
	t.Setenv("CG_CHUNK_OVERLAP", "1000")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error when overlap >= size")
	}
}
