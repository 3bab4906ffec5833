// Package metrics exposes curation counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RedditCurator/internal/domain"
)

// Recorder holds the counters of one process.
type Recorder struct {
	items       *prometheus.CounterVec
	reasons     *prometheus.CounterVec
	escalations *prometheus.CounterVec
	retained    prometheus.Counter
	itemErrors  *prometheus.CounterVec
	runs        *prometheus.CounterVec
}

// NewRecorder registers the counters on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcurator_items_total",
			Help: "Number of posts decided, by verdict",
		}, []string{"verdict"}),
		reasons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcurator_rejection_reasons_total",
			Help: "Number of rejection reasons emitted, by reason code",
		}, []string{"reason"}),
		escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcurator_escalations_total",
			Help: "Number of neutral posts re-evaluated through their comments, by outcome",
		}, []string{"outcome"}),
		retained: factory.NewCounter(prometheus.CounterOpts{
			Name: "redditcurator_comments_retained_total",
			Help: "Number of comments persisted with accepted posts",
		}),
		itemErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcurator_item_errors_total",
			Help: "Number of per-item failures, by kind",
		}, []string{"kind"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redditcurator_runs_total",
			Help: "Number of pipeline runs, by terminal state",
		}, []string{"state"}),
	}
}

// ObserveVerdict counts a decided post.
func (r *Recorder) ObserveVerdict(verdict domain.FilterVerdict, retained int) {
	if r == nil {
		return
	}
	if verdict.Escalated {
		outcome := "failed"
		if verdict.Rescued {
			outcome = "rescued"
		}
		r.escalations.WithLabelValues(outcome).Inc()
	}
	if verdict.Accepted {
		r.items.WithLabelValues(string(domain.DisplayAccepted)).Inc()
		r.retained.Add(float64(retained))
		return
	}
	r.items.WithLabelValues(string(domain.DisplayFiltered)).Inc()
	for _, code := range verdict.Codes() {
		r.reasons.WithLabelValues(code).Inc()
	}
}

// ObserveItemError counts a per-item failure; kind is a reason code.
func (r *Recorder) ObserveItemError(kind domain.ReasonCode) {
	if r == nil {
		return
	}
	r.itemErrors.WithLabelValues(string(kind)).Inc()
}

// ObserveRun counts a finished run.
func (r *Recorder) ObserveRun(state domain.RunState) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(string(state)).Inc()
}

// Serve exposes /metrics for gatherer on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listener started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
