// Package config loads server configuration from a JSON config file at
// $XDG_CONFIG_HOME/omnidoc/config.json with OMNIDOC_* environment variable
// overrides on top of built-in defaults.
package config

import (
	"fmt"
	"path/filepath"
)

// Answer strategy modes.
const (
	AnswerModeExtractive = "extractive"
	AnswerModeGenerative = "generative"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Upload    UploadConfig
	Retrieval RetrievalConfig
	Answer    AnswerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL     string
	EmbedModel  string
	AnswerModel string
}

type StorageConfig struct {
	DataDir   string
	UploadDir string
}

type UploadConfig struct {
	MaxFileSize int // bytes
}

type RetrievalConfig struct {
	TopK          int
	MinSimilarity float64
}

type AnswerConfig struct {
	Mode string // "extractive" or "generative"
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			EmbedModel:  "nomic-embed-text",
			AnswerModel: "llama3.2",
		},
		Storage: StorageConfig{
			DataDir:   dataDir,
			UploadDir: filepath.Join(dataDir, "uploads"),
		},
		Upload: UploadConfig{
			MaxFileSize: 50 << 20, // 50MB
		},
		Retrieval: RetrievalConfig{
			TopK:          8,
			MinSimilarity: 0.0,
		},
		Answer: AnswerConfig{
			Mode: AnswerModeExtractive,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file, then applies OMNIDOC_*
// environment variable overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Answer.Mode != AnswerModeExtractive && cfg.Answer.Mode != AnswerModeGenerative {
		return Config{}, fmt.Errorf("invalid answer.mode %q: must be %q or %q",
			cfg.Answer.Mode, AnswerModeExtractive, AnswerModeGenerative)
	}
	if cfg.Retrieval.MinSimilarity < -1 || cfg.Retrieval.MinSimilarity >= 1 {
		return Config{}, fmt.Errorf("invalid retrieval.min_similarity %v: must be in [-1, 1)", cfg.Retrieval.MinSimilarity)
	}

	return cfg, nil
}
