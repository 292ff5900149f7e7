package main

import (
	"github.com/poiesic/sift"
	"github.com/poiesic/sift/config"
	"github.com/poiesic/sift/ingestion"
	"github.com/poiesic/sift/loader"
	"github.com/poiesic/sift/search"
	"github.com/poiesic/sift/semantic"
	"github.com/urfave/cli/v2"
)

// loadConfig resolves the configuration from file, environment and global
// flags. The config file is optional unless set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), !c.IsSet("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(c.String("env-file")); err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Database.Path = c.String("db")
	}
	if c.IsSet("content") {
		cfg.Content.Root = c.String("content")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(cfg *config.Config) (*sift.Engine, error) {
	opts := []sift.Option{sift.WithAIConfig(cfg.AIConfig())}
	if cfg.Database.InMemory {
		opts = append(opts, sift.WithInMemory())
	}
	return sift.Open(cfg.Database.Path, opts...)
}

func newLoader(cfg *config.Config) (*loader.Loader, error) {
	return loader.New(cfg.Content.Root,
		loader.WithCategories(cfg.Content.Categories...),
		loader.WithFileNames(cfg.Content.BodyFile, cfg.Content.MetadataFile),
		loader.WithSiteURL(cfg.Content.SiteURL),
		loader.WithIncludeDrafts(cfg.Content.IncludeDrafts),
		loader.WithMinContentLength(cfg.Content.MinContentLength),
	)
}

func pipelineOptions(cfg *config.Config) []ingestion.Option {
	opts := []ingestion.Option{
		ingestion.WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap),
		ingestion.WithBatchSize(cfg.Embedding.BatchSize),
		ingestion.WithRetry(cfg.Embedding.MaxRetries, cfg.RetryDelay()),
	}
	if cfg.Indexing.Workers > 0 {
		opts = append(opts, ingestion.WithPoolSize(cfg.Indexing.Workers))
	}
	return opts
}

func searcherOptions(cfg *config.Config) ([]search.Option, error) {
	calibration, err := semantic.ParseCalibration(cfg.Search.Calibration)
	if err != nil {
		return nil, err
	}
	return []search.Option{
		search.WithSemanticWeight(cfg.Search.SemanticWeight),
		search.WithCandidateFactor(cfg.Search.CandidateFactor),
		search.WithCalibration(calibration),
	}, nil
}

// openPipeline opens the engine and an indexing pipeline over the content root.
// Caller must release the pipeline and close the engine.
func openPipeline(cfg *config.Config, opts ...ingestion.Option) (*sift.Engine, *loader.Loader, *ingestion.Pipeline, error) {
	source, err := newLoader(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	pipeline, err := engine.NewPipeline(source, append(pipelineOptions(cfg), opts...)...)
	if err != nil {
		engine.Close()
		return nil, nil, nil, err
	}
	return engine, source, pipeline, nil
}
