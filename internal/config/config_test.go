package config

import (
	"testing"
)

// fakeBackend is a test double for the Backend interface.
type fakeBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (f fakeBackend) GetString(key string) (string, bool, error) {
	v, ok := f.strings[key]
	return v, ok, nil
}

func (f fakeBackend) GetInt(key string) (int, bool, error) {
	v, ok := f.ints[key]
	return v, ok, nil
}

func (f fakeBackend) SetString(key, val string) error { return nil }
func (f fakeBackend) SetInt(key string, val int) error { return nil }
func (f fakeBackend) Delete(key string) error          { return nil }

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(fakeBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want 4800", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.GenModel != "exaone3.5" {
		t.Errorf("LLM.GenModel = %q, want exaone3.5", cfg.LLM.GenModel)
	}
	if cfg.LLM.EmbedModel != "nomic-embed-text" {
		t.Errorf("LLM.EmbedModel = %q, want nomic-embed-text", cfg.LLM.EmbedModel)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("Retrieval.TopK = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinSimilarity != 0.6 {
		t.Errorf("Retrieval.MinSimilarity = %v, want 0.6", cfg.Retrieval.MinSimilarity)
	}
	if cfg.Prompt.BrandTag != "[브랜드]" {
		t.Errorf("Prompt.BrandTag = %q", cfg.Prompt.BrandTag)
	}
}

func TestBackendOverridesDefaults(t *testing.T) {
	cfg, err := loadWith(fakeBackend{
		strings: map[string]string{
			"llm.gen_model":            "llama3.1",
			"retrieval.min_similarity": "0.75",
		},
		ints: map[string]int{
			"server.port": 9999,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.LLM.GenModel != "llama3.1" {
		t.Errorf("LLM.GenModel = %q, want llama3.1", cfg.LLM.GenModel)
	}
	if cfg.Retrieval.MinSimilarity != 0.75 {
		t.Errorf("Retrieval.MinSimilarity = %v, want 0.75", cfg.Retrieval.MinSimilarity)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("COPYGEN_LLM_GEN_MODEL", "env-model")
	t.Setenv("COPYGEN_RETRIEVAL_TOP_K", "7")
	t.Setenv("COPYGEN_RETRIEVAL_MIN_CTR", "0.02")

	cfg, err := loadWith(fakeBackend{
		strings: map[string]string{"llm.gen_model": "file-model"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.GenModel != "env-model" {
		t.Errorf("LLM.GenModel = %q, want env override", cfg.LLM.GenModel)
	}
	if cfg.Retrieval.TopK != 7 {
		t.Errorf("Retrieval.TopK = %d, want 7", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinCTR != 0.02 {
		t.Errorf("Retrieval.MinCTR = %v, want 0.02", cfg.Retrieval.MinCTR)
	}
}

func TestBadEnvValueKeepsDefault(t *testing.T) {
	t.Setenv("COPYGEN_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(fakeBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("Server.Port = %d, want default 4800", cfg.Server.Port)
	}
}
