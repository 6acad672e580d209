// Package config loads TOML configuration with environment
// overrides. Defaults mirror the reference deployment: 384-dim
// embeddings, 450/200/50 token chunking, 20-candidate retrieval with
// top-5 rerank, and 0.35/0.6 verification thresholds.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	MaxTokens      int    `toml:"max_tokens"`
}

type EmbeddingConfig struct {
	Dim int `toml:"dim"`
}

type ChunkerConfig struct {
	MaxTokens           int     `toml:"max_tokens"`
	MinTokens           int     `toml:"min_tokens"`
	OverlapTokens       int     `toml:"overlap_tokens"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	WindowSize          int     `toml:"window_size"`
}

type RerankerConfig struct {
	// Mode selects the cross-scorer: "http" for a dedicated
	// cross-encoder service, "llm" to score with the generator.
	Mode        string `toml:"mode"`
	URL         string `toml:"url"`
	MaxPassages int    `toml:"max_passages"`
	TopN        int    `toml:"top_n"`
}

type VerifierConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MinUnsupportedRatio float64 `toml:"min_unsupported_ratio"`
	MinSentenceLength   int     `toml:"min_sentence_length"`
}

type RetrievalConfig struct {
	TopK        int `toml:"top_k"`
	MaxEvidence int `toml:"max_evidence"`
}

type StorageConfig struct {
	IndexDir  string `toml:"index_dir"`
	UploadDir string `toml:"upload_dir"`
}

type PipelineConfig struct {
	ExternalTimeoutSeconds int `toml:"external_timeout_seconds"`
}

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Chunker   ChunkerConfig   `toml:"chunker"`
	Reranker  RerankerConfig  `toml:"reranker"`
	Verifier  VerifierConfig  `toml:"verifier"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Storage   StorageConfig   `toml:"storage"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "llama3-70b-8192",
			BaseURL:   "https://api.groq.com/openai/v1",
			MaxTokens: 1024,
		},
		Embedding: EmbeddingConfig{Dim: 384},
		Chunker: ChunkerConfig{
			MaxTokens:           450,
			MinTokens:           200,
			OverlapTokens:       50,
			SimilarityThreshold: 0.75,
			WindowSize:          5,
		},
		Reranker: RerankerConfig{
			Mode:        "llm",
			MaxPassages: 20,
			TopN:        5,
		},
		Verifier: VerifierConfig{
			SimilarityThreshold: 0.35,
			MinUnsupportedRatio: 0.6,
			MinSentenceLength:   20,
		},
		Retrieval: RetrievalConfig{TopK: 20, MaxEvidence: 5},
		Storage: StorageConfig{
			IndexDir:  "storage/index",
			UploadDir: "storage/uploads",
		},
		Pipeline: PipelineConfig{ExternalTimeoutSeconds: 60},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an
// error; env overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		c.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("RERANKER_URL"); v != "" {
		c.Reranker.Mode = "http"
		c.Reranker.URL = v
	}
	if v := os.Getenv("INDEX_DIR"); v != "" {
		c.Storage.IndexDir = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.Storage.UploadDir = v
	}
}
