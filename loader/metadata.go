package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/sift/core"
	"gopkg.in/yaml.v3"
)

// Publication states recognized in metadata.
const (
	StatusPublished = "published"
	StatusDraft     = "draft"
	StatusArchived  = "archived"
)

// Metadata is the content of an article's metadata.yaml.
// Fields not listed here are ignored.
type Metadata struct {
	Title       string   `yaml:"title"`
	Slug        string   `yaml:"slug"`
	Author      string   `yaml:"author"`
	PublishDate string   `yaml:"publish_date"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	URL         string   `yaml:"url"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseMetadata decodes metadata YAML. Errors wrap core.ErrDocumentParse.
func ParseMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: invalid metadata yaml: %w", core.ErrDocumentParse, err)
	}
	meta.Status = strings.ToLower(strings.TrimSpace(meta.Status))
	if meta.Status == "" {
		meta.Status = StatusPublished
	}
	return &meta, nil
}

// PublishTime parses PublishDate. An empty date yields the zero time.
func (m *Metadata) PublishTime() (time.Time, error) {
	value := strings.TrimSpace(m.PublishDate)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid publish_date %q", core.ErrDocumentParse, m.PublishDate)
}
