package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapBackend is an in-memory Backend for tests.
type mapBackend map[string]any

func (m mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (m mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
	return i, true, nil
}

func (m mapBackend) SetString(key, val string) error { m[key] = val; return nil }
func (m mapBackend) SetInt(key string, val int) error { m[key] = val; return nil }
func (m mapBackend) Delete(key string) error          { delete(m, key); return nil }

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("port = %d, want 4800", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("base url = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.EmbedModel != "nomic-embed-text" || cfg.Ollama.AnswerModel != "llama3.2" {
		t.Errorf("models = %q, %q", cfg.Ollama.EmbedModel, cfg.Ollama.AnswerModel)
	}
	if cfg.Retrieval.TopK != 8 || cfg.Retrieval.MinSimilarity != 0.0 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Answer.Mode != AnswerModeExtractive {
		t.Errorf("answer mode = %q, want extractive", cfg.Answer.Mode)
	}
	if cfg.Upload.MaxFileSize != 50<<20 {
		t.Errorf("max file size = %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Storage.UploadDir != filepath.Join(cfg.Storage.DataDir, "uploads") {
		t.Errorf("upload dir = %q not under data dir %q", cfg.Storage.UploadDir, cfg.Storage.DataDir)
	}
}

func TestLoad_BackendOverrides(t *testing.T) {
	cfg, err := loadWith(mapBackend{
		"server.port":              9000,
		"ollama.embed_model":       "mxbai-embed-large",
		"retrieval.top_k":          12,
		"retrieval.min_similarity": "0.35",
		"answer.mode":              "generative",
	})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Ollama.EmbedModel != "mxbai-embed-large" {
		t.Errorf("embed model = %q", cfg.Ollama.EmbedModel)
	}
	if cfg.Retrieval.TopK != 12 {
		t.Errorf("top_k = %d, want 12", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinSimilarity != 0.35 {
		t.Errorf("min_similarity = %v, want 0.35", cfg.Retrieval.MinSimilarity)
	}
	if cfg.Answer.Mode != AnswerModeGenerative {
		t.Errorf("answer mode = %q, want generative", cfg.Answer.Mode)
	}
}

func TestLoad_EnvOverridesWinOverBackend(t *testing.T) {
	t.Setenv("OMNIDOC_SERVER_PORT", "5001")
	t.Setenv("OMNIDOC_RETRIEVAL_MIN_SIMILARITY", "0.5")

	cfg, err := loadWith(mapBackend{
		"server.port":              9000,
		"retrieval.min_similarity": "0.1",
	})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("port = %d, want env override 5001", cfg.Server.Port)
	}
	if cfg.Retrieval.MinSimilarity != 0.5 {
		t.Errorf("min_similarity = %v, want env override 0.5", cfg.Retrieval.MinSimilarity)
	}
}

func TestLoad_BadEnvIntegerKeepsDefault(t *testing.T) {
	t.Setenv("OMNIDOC_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("port = %d, want default 4800 on unparseable env", cfg.Server.Port)
	}
}

func TestLoad_BadFloatKeepsDefault(t *testing.T) {
	cfg, err := loadWith(mapBackend{"retrieval.min_similarity": "almost one"})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Retrieval.MinSimilarity != 0.0 {
		t.Errorf("min_similarity = %v, want default on unparseable value", cfg.Retrieval.MinSimilarity)
	}
}

func TestLoad_InvalidAnswerMode(t *testing.T) {
	_, err := loadWith(mapBackend{"answer.mode": "oracular"})
	if err == nil {
		t.Fatal("expected error for unknown answer mode")
	}
	if !strings.Contains(err.Error(), "answer.mode") {
		t.Errorf("err = %v, want it to name the key", err)
	}
}

func TestLoad_MinSimilarityRange(t *testing.T) {
	for _, bad := range []string{"1", "1.5", "-1.01"} {
		if _, err := loadWith(mapBackend{"retrieval.min_similarity": bad}); err == nil {
			t.Errorf("min_similarity %s accepted, want range error", bad)
		}
	}
	// -1 and values just below 1 are valid.
	for _, good := range []string{"-1", "0.999"} {
		if _, err := loadWith(mapBackend{"retrieval.min_similarity": good}); err != nil {
			t.Errorf("min_similarity %s rejected: %v", good, err)
		}
	}
}

func TestSetKey_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetKey("server.port", "5050"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := SetKey("retrieval.min_similarity", "0.25"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5050 {
		t.Errorf("port = %d, want 5050", cfg.Server.Port)
	}
	if cfg.Retrieval.MinSimilarity != 0.25 {
		t.Errorf("min_similarity = %v, want 0.25", cfg.Retrieval.MinSimilarity)
	}

	if err := UnsetKey("server.port"); err != nil {
		t.Fatalf("UnsetKey: %v", err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("port = %d, want default after unset", cfg.Server.Port)
	}
}

func TestSetKey_Validation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetKey("server.port", "eighty"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := SetKey("retrieval.min_similarity", "high"); err == nil {
		t.Error("expected error for non-float similarity")
	}
	if err := SetKey("no.such.key", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v, want unknown key error", err)
	}
	if err := UnsetKey("no.such.key"); err == nil {
		t.Error("expected error unsetting unknown key")
	}
}

func TestShowAll_CoversEveryKey(t *testing.T) {
	cfg, err := loadWith(mapBackend{})
	if err != nil {
		t.Fatal(err)
	}
	infos := ShowAll(cfg)
	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d entries, want %d", len(infos), len(ValidKeys()))
	}
	byKey := map[string]KeyInfo{}
	for _, info := range infos {
		byKey[info.Key] = info
	}
	if got := byKey["server.port"]; got.Value != "4800" || got.EnvVar != "OMNIDOC_SERVER_PORT" {
		t.Errorf("server.port = %+v", got)
	}
	if _, ok := byKey["ollama.base_url"]; !ok {
		t.Error("ollama.base_url missing from ShowAll")
	}
}

func TestFileBackend_CorruptFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "omnidoc"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "omnidoc", "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("port = %d, want defaults on corrupt config file", cfg.Server.Port)
	}
}
