// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
)

const (
	// DefaultBodyFile is the Markdown file inside an article directory.
	DefaultBodyFile = "body.md"

	// DefaultMetadataFile is the YAML file inside an article directory.
	DefaultMetadataFile = "metadata.yaml"

	// DefaultMinContentLength is the shortest plain text body that gets indexed.
	DefaultMinContentLength = 100
)

// DefaultCategories are scanned when no categories are configured.
var DefaultCategories = []string{"blog", "engineering"}

// Loader reads articles from a directory tree.
// It implements ingestion.Source.
type Loader struct {
	root          string
	categories    []string
	bodyFile      string
	metadataFile  string
	siteURL       string
	includeDrafts bool
	minLength     int
	logger        *slog.Logger
}

var _ ingestion.Source = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader) error

// WithCategories sets the category directories to scan.
func WithCategories(categories ...string) Option {
	return func(l *Loader) error {
		if len(categories) == 0 {
			return fmt.Errorf("%w: at least one category required", core.ErrConfiguration)
		}
		l.categories = slices.Clone(categories)
		return nil
	}
}

// WithFileNames overrides the body and metadata file names.
func WithFileNames(body, metadata string) Option {
	return func(l *Loader) error {
		if body == "" || metadata == "" {
			return fmt.Errorf("%w: file names cannot be empty", core.ErrConfiguration)
		}
		l.bodyFile = body
		l.metadataFile = metadata
		return nil
	}
}

// WithSiteURL sets the base used to build canonical article URLs.
func WithSiteURL(siteURL string) Option {
	return func(l *Loader) error {
		l.siteURL = strings.TrimRight(siteURL, "/")
		return nil
	}
}

// WithIncludeDrafts indexes articles whose status is draft.
func WithIncludeDrafts(include bool) Option {
	return func(l *Loader) error {
		l.includeDrafts = include
		return nil
	}
}

// WithMinContentLength sets the minimum plain text length in characters.
func WithMinContentLength(n int) Option {
	return func(l *Loader) error {
		if n < 0 {
			return fmt.Errorf("%w: minimum content length cannot be negative", core.ErrConfiguration)
		}
		l.minLength = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// New creates a Loader rooted at root. The root must be an existing directory.
func New(root string, opts ...Option) (*Loader, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, ErrRootRequired)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: content root: %w", core.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: content root %s is not a directory", core.ErrConfiguration, root)
	}

	l := &Loader{
		root:         root,
		categories:   slices.Clone(DefaultCategories),
		bodyFile:     DefaultBodyFile,
		metadataFile: DefaultMetadataFile,
		minLength:    DefaultMinContentLength,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.logger = l.logger.With("component", "loader")
	return l, nil
}

// Root returns the content root directory.
func (l *Loader) Root() string {
	return l.root
}

// Categories returns the scanned categories.
func (l *Loader) Categories() []string {
	return slices.Clone(l.categories)
}

// Discover lists article directories inside scope that hold both a body and
// a metadata file. Missing category directories are not an error.
func (l *Loader) Discover(ctx context.Context, scope core.IndexScope) ([]core.DocumentRef, error) {
	categories := l.categories
	if scope.Category != "" {
		if !slices.Contains(l.categories, scope.Category) {
			return nil, fmt.Errorf("%w: %w: %s", core.ErrConfiguration, ErrUnsupportedCategory, scope.Category)
		}
		categories = []string{scope.Category}
	}

	refs := []core.DocumentRef{}
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if scope.Slug != "" {
			if !validSlug(scope.Slug) {
				return nil, fmt.Errorf("%w: %w: %q", core.ErrConfiguration, ErrInvalidSlug, scope.Slug)
			}
			if l.isArticle(category, scope.Slug) {
				refs = append(refs, core.DocumentRef{Category: category, Slug: scope.Slug})
			}
			continue
		}

		entries, err := os.ReadDir(filepath.Join(l.root, category))
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("category directory missing", "category", category)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading category %s: %w", category, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			if l.isArticle(category, entry.Name()) {
				refs = append(refs, core.DocumentRef{Category: category, Slug: entry.Name()})
			}
		}
	}
	return refs, nil
}

// Load reads and converts one article.
func (l *Loader) Load(ctx context.Context, ref core.DocumentRef) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Contains(l.categories, ref.Category) {
		return nil, fmt.Errorf("%w: %w: %s", core.ErrDocumentParse, ErrUnsupportedCategory, ref.Category)
	}
	if !validSlug(ref.Slug) {
		return nil, fmt.Errorf("%w: %w: %q", core.ErrDocumentParse, ErrInvalidSlug, ref.Slug)
	}
	dir := l.articleDir(ref.Category, ref.Slug)

	raw, err := os.ReadFile(filepath.Join(dir, l.metadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDocumentParse, err)
	}
	meta, err := ParseMetadata(raw)
	if err != nil {
		return nil, err
	}

	switch {
	case meta.Status == StatusArchived:
		return nil, fmt.Errorf("%w: archived", core.ErrDocumentExcluded)
	case meta.Status == StatusDraft && !l.includeDrafts:
		return nil, fmt.Errorf("%w: draft", core.ErrDocumentExcluded)
	}

	if meta.Category != ref.Category {
		return nil, fmt.Errorf("%w: %w: %q in %s", core.ErrDocumentParse, ErrCategoryMismatch, meta.Category, ref.Category)
	}

	published, err := meta.PublishTime()
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(filepath.Join(dir, l.bodyFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDocumentParse, err)
	}
	plain := MarkdownToText(string(body))
	if n := utf8.RuneCountInString(plain); n < l.minLength {
		return nil, fmt.Errorf("%w: content too short: %d characters (minimum %d)", core.ErrDocumentExcluded, n, l.minLength)
	}

	url := meta.URL
	if url == "" {
		url = l.CanonicalURL(ref.Category, ref.Slug)
	}

	return &core.Document{
		Id:          ref.ID(),
		Title:       strings.TrimSpace(meta.Title),
		Category:    ref.Category,
		Slug:        ref.Slug,
		Author:      meta.Author,
		Description: meta.Description,
		URL:         url,
		PublishDate: published,
		Tags:        core.NormalizeTags(meta.Tags),
		Body:        plain,
	}, nil
}

// CanonicalURL returns <site>/<category>/<slug>, or a root-relative path
// when no site URL is configured.
func (l *Loader) CanonicalURL(category, slug string) string {
	return l.siteURL + "/" + category + "/" + slug
}

// Locate maps a path under the content root to the article it belongs to.
// It reports false for paths outside any article directory.
func (l *Loader) Locate(path string) (core.DocumentRef, bool) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return core.DocumentRef{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || !slices.Contains(l.categories, parts[0]) {
		return core.DocumentRef{}, false
	}
	if parts[1] == "" || strings.HasPrefix(parts[1], ".") {
		return core.DocumentRef{}, false
	}
	// A file directly inside a category directory is not an article.
	if len(parts) == 2 && fileExists(path) {
		return core.DocumentRef{}, false
	}
	return core.DocumentRef{Category: parts[0], Slug: parts[1]}, true
}

func (l *Loader) articleDir(category, slug string) string {
	return filepath.Join(l.root, category, slug)
}

func (l *Loader) isArticle(category, slug string) bool {
	dir := l.articleDir(category, slug)
	return fileExists(filepath.Join(dir, l.bodyFile)) && fileExists(filepath.Join(dir, l.metadataFile))
}

// validSlug reports whether slug names a single visible directory, so that
// joining it to a category cannot leave the content root.
func validSlug(slug string) bool {
	if slug == "" || strings.HasPrefix(slug, ".") {
		return false
	}
	return !strings.ContainsAny(slug, `/\`)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
