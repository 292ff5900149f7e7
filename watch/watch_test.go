package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
	"github.com/poiesic/sift/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingIndexer struct {
	mu     sync.Mutex
	scopes []core.IndexScope
	runs   chan core.IndexScope
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{runs: make(chan core.IndexScope, 16)}
}

func (r *recordingIndexer) Run(ctx context.Context, scope core.IndexScope, opts *ingestion.RunOptions) (*core.IndexingResult, error) {
	r.mu.Lock()
	r.scopes = append(r.scopes, scope)
	r.mu.Unlock()
	r.runs <- scope
	return &core.IndexingResult{Scope: scope, Status: core.IndexingCompleted}, nil
}

func (r *recordingIndexer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

func startWatcher(t *testing.T, root string, indexer Indexer) {
	l, err := loader.New(root)
	require.NoError(t, err)

	w, err := New(root, l, indexer, WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
}

func waitForRun(t *testing.T, indexer *recordingIndexer) core.IndexScope {
	t.Helper()
	select {
	case scope := <-indexer.runs:
		return scope
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for re-index")
		return core.IndexScope{}
	}
}

func TestNew(t *testing.T) {
	root := t.TempDir()
	l, err := loader.New(root)
	require.NoError(t, err)

	_, err = New(root, nil, newRecordingIndexer())
	assert.Equal(t, ErrLocatorRequired, err)
	_, err = New(root, l, nil)
	assert.Equal(t, ErrIndexerRequired, err)

	w, err := New(filepath.Join(root, "missing"), l, newRecordingIndexer())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestWatcher_ReindexesChangedArticle(t *testing.T) {
	root := t.TempDir()
	article := filepath.Join(root, "blog", "a")
	require.NoError(t, os.MkdirAll(article, 0o755))
	indexer := newRecordingIndexer()
	startWatcher(t, root, indexer)

	for range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(article, "body.md"), []byte("updated"), 0o644))
	}

	assert.Equal(t, core.IndexScope{Category: "blog", Slug: "a"}, waitForRun(t, indexer))

	// Rapid writes collapse into one run.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, indexer.count())
}

func TestWatcher_NewArticleDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "engineering"), 0o755))
	indexer := newRecordingIndexer()
	startWatcher(t, root, indexer)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "engineering", "new-post"), 0o755))

	assert.Equal(t, core.IndexScope{Category: "engineering", Slug: "new-post"}, waitForRun(t, indexer))
}

func TestWatcher_IgnoresUnrelatedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog", "a"), 0o755))
	indexer := newRecordingIndexer()
	startWatcher(t, root, indexer)

	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blog", "index.md"), []byte("x"), 0o644))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, indexer.count())
}
