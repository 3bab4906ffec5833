package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"RedditCurator/internal/config"
	"RedditCurator/internal/curator"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/filter"
	"RedditCurator/internal/metrics"
	"RedditCurator/internal/ports"
)

// WriterFactory opens the output tree for one source.
type WriterFactory func(name string) (ports.ResultWriter, error)

// PipelineDeps wires all driven adapters into the curation pipeline.
type PipelineDeps struct {
	Source     ports.ContentSource
	Chain      *filter.Chain
	Curator    *curator.Curator
	OpenWriter WriterFactory
	Ledger     ports.VerdictLedger
	Progress   ports.ProgressSink
	Metrics    *metrics.Recorder
	Config     *config.CurationConfig
	Logger     *slog.Logger
	// NewRunID defaults to random UUIDs.
	NewRunID func() string
}

// Pipeline runs one source through the filter chain and persists the outcome.
// Items are handled strictly in source order.
type Pipeline struct {
	source     ports.ContentSource
	chain      *filter.Chain
	curator    *curator.Curator
	openWriter WriterFactory
	ledger     ports.VerdictLedger
	progress   ports.ProgressSink
	metrics    *metrics.Recorder
	cfg        *config.CurationConfig
	logger     *slog.Logger
	newRunID   func() string

	mu    sync.RWMutex
	state domain.RunState
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:     deps.Source,
		chain:      deps.Chain,
		curator:    deps.Curator,
		openWriter: deps.OpenWriter,
		ledger:     deps.Ledger,
		progress:   deps.Progress,
		metrics:    deps.Metrics,
		cfg:        deps.Config,
		logger:     deps.Logger,
		newRunID:   deps.NewRunID,
		state:      domain.StateIdle,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.newRunID == nil {
		p.newRunID = func() string { return uuid.NewString() }
	}
	return p
}

// State returns the current run milestone.
func (p *Pipeline) State() domain.RunState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(state domain.RunState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// run carries the per-run mutable state.
type run struct {
	id     string
	req    domain.SourceRequest
	writer ports.ResultWriter
	stats  domain.RunStatistics
	logger *slog.Logger
}

// Run fetches, evaluates and persists every item of req. Only setup failures
// and cancellation return an error; per-item failures are counted and logged.
func (p *Pipeline) Run(ctx context.Context, req domain.SourceRequest) (domain.RunStatistics, error) {
	r := &run{id: p.newRunID(), req: req}
	r.logger = p.logger.With("run_id", r.id, "source", req.Name)

	p.setState(domain.StateConnecting)
	p.report(ctx, domain.Busy("connecting to "+req.Name))
	r.logger.Info("run started", "query", req.Query, "sort", req.Sort, "limit", req.Limit)

	if p.source == nil || p.openWriter == nil {
		return p.fail(ctx, r, errors.New("pipeline is missing its source or output"))
	}

	stream, err := p.source.Open(ctx, req)
	if err != nil {
		return p.fail(ctx, r, fmt.Errorf("open source %s: %w", req.Name, err))
	}
	defer func() {
		if err := stream.Close(); err != nil {
			r.logger.Warn("close stream", "error", err)
		}
	}()

	r.writer, err = p.openWriter(req.Name)
	if err != nil {
		return p.fail(ctx, r, fmt.Errorf("open output for %s: %w", req.Name, err))
	}

	for {
		if err := ctx.Err(); err != nil {
			p.closeWriter(ctx, r)
			return p.fail(ctx, r, err)
		}

		p.setState(domain.StateFetching)
		item, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.closeWriter(ctx, r)
				return p.fail(ctx, r, ctxErr)
			}
			if errors.Is(err, domain.ErrItemFetch) {
				p.handleItemError(ctx, r, err)
				p.reportPercent(ctx, r)
				continue
			}
			r.logger.Error("source stopped early", "error", err, "processed", r.stats.Processed)
			p.report(ctx, domain.Busy("source stopped early: "+err.Error()))
			break
		}

		p.process(ctx, r, item)
		p.reportPercent(ctx, r)
	}

	p.closeWriter(ctx, r)

	p.setState(domain.StateSummarizing)
	summary := r.stats.Summary()
	r.logger.Info("run completed",
		"processed", r.stats.Processed,
		"kept", r.stats.Kept,
		"filtered", r.stats.Filtered,
		"comments_retained", r.stats.CommentsRetained,
		"escalations", r.stats.Escalations,
		"rescued", r.stats.Rescued,
		"errors", r.stats.Errors,
	)
	p.report(ctx, domain.ProgressEvent{Message: summary, Percent: 100, Final: true})

	p.setState(domain.StateCompleted)
	p.metrics.ObserveRun(domain.StateCompleted)
	return r.stats, nil
}

func (p *Pipeline) process(ctx context.Context, r *run, item domain.ContentItem) {
	p.setState(domain.StateEvaluating)

	verdict := p.chain.Evaluate(item, func(it domain.ContentItem) bool {
		p.setState(domain.StateEscalating)
		p.report(ctx, domain.Busy("checking comments of "+it.Title))
		return p.curator.HasDiscussionSignal(it)
	})
	if verdict.Escalated {
		r.stats.Escalations++
		if verdict.Rescued {
			r.stats.Rescued++
		}
	}

	var comments []domain.CommentRecord
	if verdict.Accepted {
		comments = p.curator.FilterComments(item)
		if len(comments) < p.cfg.MinRetainedComments {
			verdict = verdict.WithReason(domain.Reason{Code: domain.ReasonLowComments, Detail: strconv.Itoa(len(comments))})
			comments = nil
		}
	}

	lost := false
	if verdict.Accepted {
		p.setState(domain.StatePersisting)
		err := r.writer.WriteAccepted(domain.AcceptedItem{Item: item, Verdict: verdict, Comments: comments})
		if err == nil {
			r.stats.Kept++
			r.stats.CommentsRetained += len(comments)
		} else {
			lost = true
			r.logger.Error("accepted post lost", "post_id", item.ID, "error", err)
			p.metrics.ObserveItemError(domain.ReasonPersistError)
			verdict = verdict.WithReason(domain.Reason{Code: domain.ReasonPersistError, Detail: err.Error()})
			comments = nil
		}
	}

	if !verdict.Accepted {
		p.logRejection(r, item, verdict, &lost)
	}
	if lost {
		r.stats.Errors++
	}
	r.stats.Processed++

	p.record(ctx, r, item, verdict, len(comments))
	p.report(ctx, displayEvent(item, verdict, len(comments)))
}

// handleItemError turns a failed fetch into a filtered item so it still
// leaves a trace in the filtered table.
func (p *Pipeline) handleItemError(ctx context.Context, r *run, err error) {
	item := domain.ContentItem{}
	var itemErr *domain.ItemError
	if errors.As(err, &itemErr) {
		item.ID, item.Title = itemErr.ItemID, itemErr.Title
	}

	r.logger.Warn("item skipped", "post_id", item.ID, "error", err)
	p.metrics.ObserveItemError(domain.ReasonProcessingError)

	verdict := domain.NewVerdict(domain.SentimentScore{}, domain.Reason{Code: domain.ReasonProcessingError, Detail: err.Error()})
	lost := false
	p.logRejection(r, item, verdict, &lost)
	r.stats.Errors++
	r.stats.Processed++

	p.record(ctx, r, item, verdict, 0)
	p.report(ctx, displayEvent(item, verdict, 0))
}

func (p *Pipeline) logRejection(r *run, item domain.ContentItem, verdict domain.FilterVerdict, lost *bool) {
	p.setState(domain.StateLoggingRejection)
	r.stats.Filtered++
	if err := r.writer.WriteRejected(domain.RejectedItem{Item: item, Verdict: verdict}); err != nil {
		*lost = true
		r.logger.Error("rejection not logged", "post_id", item.ID, "reasons", verdict.ReasonText(), "error", err)
		p.metrics.ObserveItemError(domain.ReasonPersistError)
	}
}

func (p *Pipeline) record(ctx context.Context, r *run, item domain.ContentItem, verdict domain.FilterVerdict, retained int) {
	p.metrics.ObserveVerdict(verdict, retained)
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordVerdict(ctx, r.id, item, verdict, retained); err != nil {
		r.logger.Warn("verdict not recorded in ledger", "post_id", item.ID, "error", err)
	}
}

func (p *Pipeline) closeWriter(ctx context.Context, r *run) {
	if r.writer == nil {
		return
	}
	if err := r.writer.Close(); err != nil {
		r.logger.Error("output not flushed", "error", err)
		p.report(ctx, domain.Busy("output not flushed: "+err.Error()))
	}
	r.writer = nil
}

func (p *Pipeline) fail(ctx context.Context, r *run, err error) (domain.RunStatistics, error) {
	p.setState(domain.StateFailed)
	r.logger.Error("run failed", "error", err, "processed", r.stats.Processed)
	p.report(ctx, domain.ProgressEvent{Message: "run failed: " + err.Error(), Percent: domain.Indeterminate, Final: true})
	p.metrics.ObserveRun(domain.StateFailed)
	return r.stats, err
}

func (p *Pipeline) report(ctx context.Context, event domain.ProgressEvent) {
	if p.progress != nil {
		p.progress.Report(ctx, event)
	}
}

func (p *Pipeline) reportPercent(ctx context.Context, r *run) {
	processed := r.stats.Processed
	if r.req.Limit <= 0 {
		p.report(ctx, domain.Busy(fmt.Sprintf("processed %d posts", processed)))
		return
	}
	percent := min(processed*100/r.req.Limit, 100)
	p.report(ctx, domain.ProgressEvent{
		Message: fmt.Sprintf("processed %d/%d posts", processed, r.req.Limit),
		Percent: percent,
	})
}

func displayEvent(item domain.ContentItem, verdict domain.FilterVerdict, retained int) domain.ProgressEvent {
	entry := &domain.DisplayEntry{Title: item.Title, Verdict: domain.DisplayFiltered, Detail: verdict.ReasonText()}
	if verdict.Accepted {
		entry.Verdict = domain.DisplayAccepted
		entry.Detail = fmt.Sprintf("compound %.2f, %d comments", verdict.Sentiment.Compound, retained)
		if verdict.Escalated {
			entry.Detail += ", rescued by comments"
		}
	}
	if entry.Title == "" {
		entry.Title = item.ID
	}
	return domain.ProgressEvent{Message: entry.Title, Percent: domain.Indeterminate, Display: entry}
}
