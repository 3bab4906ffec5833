package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"RedditCurator/internal/config"
	"RedditCurator/internal/curator"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/filter"
	"RedditCurator/internal/infrastructure/dump"
	"RedditCurator/internal/infrastructure/reddit"
	"RedditCurator/internal/infrastructure/storage"
	"RedditCurator/internal/logging"
	"RedditCurator/internal/metrics"
	"RedditCurator/internal/ports"
	"RedditCurator/internal/progress"
	"RedditCurator/internal/sentiment"
	"RedditCurator/internal/source"
	"RedditCurator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	console  io.Writer
	registry *source.Registry
	curation *config.CurationConfig
	chain    *filter.Chain
	curator  *curator.Curator
	gatherer *prometheus.Registry
	recorder *metrics.Recorder
	clock    clockwork.Clock
}

// New builds the collaborators that do not touch the network or disk.
func New(cfg config.Config, baseLogger *slog.Logger, console io.Writer) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if console == nil {
		console = io.Discard
	}

	clock := clockwork.NewRealClock()
	registry := source.NewRegistry()
	client := reddit.NewClient(cfg.Reddit, baseLogger.With("component", "reddit"), reddit.WithClock(clock))
	registry.Register(reddit.NewSource(client, baseLogger.With("component", "source.reddit")))
	registry.Register(dump.NewSource(cfg.Source.DumpPath, baseLogger.With("component", "source.dump")))

	curation := cfg.Curation
	engine := sentiment.NewEngine(&curation)

	gatherer := prometheus.NewRegistry()

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		console:  console,
		registry: registry,
		curation: &curation,
		chain:    filter.NewChain(&curation, engine, baseLogger.With("component", "filter")),
		curator:  curator.New(&curation, engine, baseLogger.With("component", "curator")),
		gatherer: gatherer,
		recorder: metrics.NewRecorder(gatherer),
		clock:    clock,
	}
}

// Request translates the source settings into a pipeline request.
func (a *Application) Request() domain.SourceRequest {
	src := a.cfg.Source
	return domain.SourceRequest{
		Name:          src.Subreddit,
		Query:         src.Query,
		Sort:          src.Sort,
		TimeFilter:    src.TimeFilter,
		Limit:         src.Limit,
		IncludeOver18: src.IncludeOver18,
		Options:       src.Options,
	}
}

// Run performs one curation run while the console drains progress events.
func (a *Application) Run(ctx context.Context) (domain.RunStatistics, error) {
	strategy, err := a.registry.Resolve(a.cfg.Source.Strategy)
	if err != nil {
		return domain.RunStatistics{}, err
	}

	var ledger ports.VerdictLedger
	if a.cfg.Database.DSN != "" {
		db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
		if err != nil {
			return domain.RunStatistics{}, err
		}
		pg := storage.NewPostgresLedger(db)
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return domain.RunStatistics{}, err
		}
		ledger = pg
	}

	reporter := progress.NewReporter(a.cfg.Progress, a.logger.With("component", "progress"), a.clock)
	outputDir := a.cfg.Output.Dir
	writerLogger := a.logger.With("component", "storage")

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:  strategy,
		Chain:   a.chain,
		Curator: a.curator,
		OpenWriter: func(name string) (ports.ResultWriter, error) {
			w, err := storage.OpenFileWriter(outputDir, name, writerLogger)
			if err != nil {
				return nil, err
			}
			return w, nil
		},
		Ledger:   ledger,
		Progress: reporter,
		Metrics:  a.recorder,
		Config:   a.curation,
		Logger:   a.logger.With("component", "pipeline"),
	})

	g, gctx := errgroup.WithContext(ctx)
	metricsCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	// The console exits once the reporter closes, so it sees the final event
	// even when the run fails.
	g.Go(func() error {
		return progress.Render(ctx, reporter.Events(), a.console)
	})

	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		g.Go(func() error {
			return metrics.Serve(metricsCtx, addr, a.gatherer, a.logger.With("component", "metrics"))
		})
	}

	var stats domain.RunStatistics
	g.Go(func() error {
		defer stopMetrics()
		defer reporter.Close()

		var runErr error
		stats, runErr = pipeline.Run(gctx, a.Request())
		return runErr
	})

	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("curation run %s/%s: %w", a.cfg.Source.Strategy, a.cfg.Source.Subreddit, err)
	}
	if dropped := reporter.Dropped(); dropped > 0 {
		a.logger.Debug("progress updates throttled", "dropped", dropped)
	}
	return stats, nil
}
