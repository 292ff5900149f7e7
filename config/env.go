package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/sift/core"
)

// EnvPrefix starts every environment variable read by ApplyEnv.
const EnvPrefix = "SIFT_"

// ApplyEnv loads the given dotenv files, when they exist, and overrides
// settings from SIFT_* variables. Variables already set in the process
// environment win over dotenv values.
func (c *Config) ApplyEnv(dotenvFiles ...string) error {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: loading %s: %w", core.ErrConfiguration, file, err)
		}
	}

	strs := map[string]*string{
		"CONTENT_ROOT":       &c.Content.Root,
		"SITE_URL":           &c.Content.SiteURL,
		"EMBEDDING_HOST":     &c.Embedding.Host,
		"EMBEDDING_MODEL":    &c.Embedding.Model,
		"EMBEDDING_API_KEY":  &c.Embedding.APIKey,
		"DB_PATH":            &c.Database.Path,
		"SEARCH_CALIBRATION": &c.Search.Calibration,
		"SERVER_ADDR":        &c.Server.Addr,
	}
	for name, target := range strs {
		if v, ok := lookup(name); ok {
			*target = v
		}
	}

	if v, ok := lookup("CATEGORIES"); ok {
		var categories []string
		for _, category := range strings.Split(v, ",") {
			if category = strings.TrimSpace(category); category != "" {
				categories = append(categories, category)
			}
		}
		c.Content.Categories = categories
	}

	bools := map[string]*bool{
		"INCLUDE_DRAFTS":      &c.Content.IncludeDrafts,
		"EMBEDDING_NORMALIZE": &c.Embedding.Normalize,
		"DB_IN_MEMORY":        &c.Database.InMemory,
	}
	for name, target := range bools {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %w", core.ErrConfiguration, EnvPrefix, name, err)
			}
			*target = b
		}
	}

	ints := map[string]*int{
		"MIN_CONTENT_LENGTH":   &c.Content.MinContentLength,
		"CHUNK_SIZE":           &c.Chunking.Size,
		"CHUNK_OVERLAP":        &c.Chunking.Overlap,
		"EMBEDDING_BATCH_SIZE": &c.Embedding.BatchSize,
		"INDEX_WORKERS":        &c.Indexing.Workers,
	}
	for name, target := range ints {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %w", core.ErrConfiguration, EnvPrefix, name, err)
			}
			*target = n
		}
	}

	if v, ok := lookup("SEMANTIC_WEIGHT"); ok {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sSEMANTIC_WEIGHT: %w", core.ErrConfiguration, EnvPrefix, err)
		}
		c.Search.SemanticWeight = w
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}
