package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
	"github.com/poiesic/sift/search"
	"github.com/poiesic/sift/server"
	"github.com/poiesic/sift/watch"
	"github.com/urfave/cli/v2"
)

func indexCommand(c *cli.Context) error {
	scope := core.IndexScope{Category: c.String("category"), Slug: c.String("slug")}
	if scope.Slug != "" && scope.Category == "" {
		return fmt.Errorf("%w: --slug requires --category", core.ErrConfiguration)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	var extra []ingestion.Option
	if !c.Bool("quiet") && !c.Bool("json") {
		extra = append(extra, ingestion.WithProgress(c.App.ErrWriter))
	}
	engine, _, pipeline, err := openPipeline(cfg, extra...)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer pipeline.Release()

	result, err := pipeline.Run(c.Context, scope, &ingestion.RunOptions{Force: c.Bool("force")})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, result); err != nil {
			return err
		}
	} else {
		printIndexingResult(c.App.Writer, result)
	}
	if result.Status == core.IndexingFailed {
		return errors.New("indexing failed for every document")
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	mode, err := core.ParseSearchMode(c.String("mode"))
	if err != nil {
		return err
	}
	threshold := c.Float64("threshold")
	query := core.SearchQuery{
		Text:                strings.Join(c.Args().Slice(), " "),
		Mode:                mode,
		Limit:               c.Int("limit"),
		Offset:              c.Int("offset"),
		Category:            c.String("category"),
		SimilarityThreshold: &threshold,
		CaseSensitive:       c.Bool("case-sensitive"),
	}
	// Reject bad queries before touching the index.
	if err := core.ValidateQuery(query); err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts, err := searcherOptions(cfg)
	if err != nil {
		return err
	}
	searcher, err := engine.NewSearcher(opts...)
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor
	if c.Bool("explain") {
		monitor = search.NewLogMonitor(slog.Default())
	}
	resp, err := searcher.SearchWithMonitor(c.Context, query, monitor)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	printSearchResponse(c.App.Writer, resp)
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Stats(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, stats)
	}
	printStats(c.App.Writer, stats)
	return nil
}

func clearCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("refusing to clear the index without --yes")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	category := c.String("category")
	removed, err := engine.Clear(c.Context, category)
	if err != nil {
		return err
	}
	if category == "" {
		category = "all categories"
	}
	fmt.Fprintf(c.App.Writer, "Removed %d documents from %s\n", removed, category)
	return nil
}

func healthCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return err
	}
	report := searcher.Health(c.Context)

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, report); err != nil {
			return err
		}
	} else {
		printHealth(c.App.Writer, report)
	}
	if report.Status == search.StatusUnhealthy {
		return fmt.Errorf("%w: %s", core.ErrIndexUnavailable, report.Error)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, _, pipeline, err := openPipeline(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer pipeline.Release()

	opts, err := searcherOptions(cfg)
	if err != nil {
		return err
	}
	searcher, err := engine.NewSearcher(opts...)
	if err != nil {
		return err
	}

	srv, err := server.New(searcher, engine, server.WithIndexer(pipeline))
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, addr)
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, source, pipeline, err := openPipeline(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer pipeline.Release()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Bool("initial") {
		result, err := pipeline.Run(ctx, core.IndexScope{}, nil)
		if err != nil {
			return err
		}
		printIndexingResult(c.App.Writer, result)
	}

	watcher, err := watch.New(source.Root(), source, pipeline, watch.WithDebounce(cfg.Debounce()))
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
