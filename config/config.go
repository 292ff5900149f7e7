package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/sift/ai"
	"github.com/poiesic/sift/chunking"
	"github.com/poiesic/sift/core"
)

// Config is the complete sift configuration.
type Config struct {
	Content   ContentConfig   `toml:"content"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Database  DatabaseConfig  `toml:"database"`
	Search    SearchConfig    `toml:"search"`
	Indexing  IndexingConfig  `toml:"indexing"`
	Server    ServerConfig    `toml:"server"`
}

// ContentConfig locates and filters the article tree.
type ContentConfig struct {
	Root             string   `toml:"root"`
	Categories       []string `toml:"categories"`
	SiteURL          string   `toml:"site_url"`
	IncludeDrafts    bool     `toml:"include_drafts"`
	MinContentLength int      `toml:"min_content_length"`
	BodyFile         string   `toml:"body_file"`
	MetadataFile     string   `toml:"metadata_file"`
}

// ChunkingConfig sizes chunks in tokens.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// EmbeddingConfig selects the embedding service.
type EmbeddingConfig struct {
	Host           string `toml:"host"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	Normalize      bool   `toml:"normalize"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BatchSize      int    `toml:"batch_size"`
	MaxRetries     int    `toml:"max_retries"`
	RetryDelayMs   int    `toml:"retry_delay_ms"`
}

// DatabaseConfig locates the index.
type DatabaseConfig struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	SemanticWeight  float64 `toml:"semantic_weight"`
	CandidateFactor int     `toml:"candidate_factor"`
	Calibration     string  `toml:"calibration"`
}

// IndexingConfig tunes indexing runs.
type IndexingConfig struct {
	Workers    int `toml:"workers"`
	DebounceMs int `toml:"debounce_ms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	embedding := ai.DefaultConfig()
	return &Config{
		Content: ContentConfig{
			Root:             "content",
			Categories:       []string{"blog", "engineering"},
			MinContentLength: 100,
			BodyFile:         "body.md",
			MetadataFile:     "metadata.yaml",
		},
		Chunking: ChunkingConfig{
			Size:    chunking.DefaultChunkSize,
			Overlap: chunking.DefaultOverlap,
		},
		Embedding: EmbeddingConfig{
			Host:           embedding.EmbeddingHost,
			Model:          embedding.EmbeddingModel,
			APIKey:         embedding.APIKey,
			Normalize:      embedding.NormalizeVectors,
			TimeoutSeconds: int(embedding.RequestTimeout / time.Second),
			BatchSize:      16,
			MaxRetries:     3,
			RetryDelayMs:   500,
		},
		Database: DatabaseConfig{
			Path: "data/index",
		},
		Search: SearchConfig{
			SemanticWeight:  0.5,
			CandidateFactor: 3,
			Calibration:     "linear",
		},
		Indexing: IndexingConfig{
			DebounceMs: 500,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads the TOML file at path over the defaults.
// A missing file is not an error when optional is true.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %w", core.ErrConfiguration, path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", core.ErrConfiguration, path, err)
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the configuration for values no component can accept.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Content.Root) == "" {
		problems = append(problems, "content.root is required")
	}
	if len(c.Content.Categories) == 0 {
		problems = append(problems, "content.categories cannot be empty")
	}
	if slices.Contains(c.Content.Categories, "") {
		problems = append(problems, "content.categories cannot contain empty names")
	}
	if c.Content.MinContentLength < 0 {
		problems = append(problems, "content.min_content_length cannot be negative")
	}
	if err := chunking.Validate(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Embedding.BatchSize < 1 {
		problems = append(problems, "embedding.batch_size must be at least 1")
	}
	if c.Embedding.MaxRetries < 1 {
		problems = append(problems, "embedding.max_retries must be at least 1")
	}
	if c.Embedding.RetryDelayMs < 0 || c.Embedding.TimeoutSeconds < 0 {
		problems = append(problems, "embedding delays cannot be negative")
	}
	if !c.Database.InMemory && strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database.path is required unless database.in_memory is set")
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		problems = append(problems, "search.semantic_weight must be between 0 and 1")
	}
	if c.Search.CandidateFactor < 1 {
		problems = append(problems, "search.candidate_factor must be at least 1")
	}
	switch strings.ToLower(c.Search.Calibration) {
	case "", "linear", "inverse":
	default:
		problems = append(problems, fmt.Sprintf("search.calibration %q is not linear or inverse", c.Search.Calibration))
	}
	if c.Indexing.Workers < 0 || c.Indexing.DebounceMs < 0 {
		problems = append(problems, "indexing values cannot be negative")
	}
	if err := c.AIConfig().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", core.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// AIConfig converts the embedding section for the ai package.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithNormalizeVectors(c.Embedding.Normalize),
		ai.WithRequestTimeout(time.Duration(c.Embedding.TimeoutSeconds)*time.Second),
	)
}

// RetryDelay returns the initial embedding retry backoff.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Embedding.RetryDelayMs) * time.Millisecond
}

// Debounce returns how long watch mode waits for changes to settle.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Indexing.DebounceMs) * time.Millisecond
}
