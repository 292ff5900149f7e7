package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/search"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIndexingResult(w io.Writer, r *core.IndexingResult) {
	fmt.Fprintf(w, "Indexing %s: %s in %s\n", r.Scope, r.Status, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Documents: %d processed, %d skipped, %d failed, %d removed\n",
		r.DocumentsProcessed, r.DocumentsSkipped, r.DocumentsFailed, r.DocumentsRemoved)
	fmt.Fprintf(w, "  Chunks: %d created\n", r.ChunksCreated)
	fmt.Fprintf(w, "  Embeddings: %d generated, %d from cache\n", r.EmbeddingsGenerated, r.CacheHits)
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
	for _, msg := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
}

func printSearchResponse(w io.Writer, resp *core.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "No results for %q\n", resp.Query.Text)
		return
	}
	fmt.Fprintf(w, "%d results for %q (%.1fms)\n\n", resp.TotalResults, resp.Query.Text, resp.SearchTimeMs)
	for i, r := range resp.Results {
		fmt.Fprintf(w, "%d. %s [%s] score=%.3f\n", resp.Query.Offset+i+1, r.Title, r.Category, r.Score)
		if r.URL != "" {
			fmt.Fprintf(w, "   %s\n", r.URL)
		}
		if r.Excerpt != "" {
			fmt.Fprintf(w, "   %s\n", r.Excerpt)
		}
	}
	if degraded, ok := resp.Metadata["degraded"].(bool); ok && degraded {
		fmt.Fprintln(w, "\n(semantic search unavailable, keyword results only)")
	}
}

func printStats(w io.Writer, stats *core.IndexStats) {
	fmt.Fprintf(w, "Index: %s\n", stats.Location)
	if stats.EmbeddingModel != "" {
		fmt.Fprintf(w, "Model: %s (%d dimensions)\n", stats.EmbeddingModel, stats.Dimension)
	}
	fmt.Fprintf(w, "Documents: %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "Chunks: %d\n", stats.TotalChunks)
	if !stats.LastUpdated.IsZero() {
		fmt.Fprintf(w, "Last updated: %s\n", stats.LastUpdated.Format(time.RFC3339))
	}

	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cs := stats.Categories[name]
		fmt.Fprintf(w, "  %-16s %6d documents %8d chunks\n", name, cs.Documents, cs.Chunks)
	}
}

func printHealth(w io.Writer, report *search.HealthReport) {
	fmt.Fprintf(w, "Status: %s\n", strings.ToUpper(report.Status))
	fmt.Fprintf(w, "  index available:     %t\n", report.IndexAvailable)
	fmt.Fprintf(w, "  embedding available: %t\n", report.EmbeddingAvailable)
	fmt.Fprintf(w, "  self test:           %t (%d results)\n", report.SelfTestOK, report.SampleResults)
	if report.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", report.Error)
	}
}
