package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
)

const verdictTable = "curation_verdicts"

const verdictSchema = `CREATE TABLE IF NOT EXISTS curation_verdicts (
    run_id            TEXT        NOT NULL,
    post_id           TEXT        NOT NULL,
    title             TEXT        NOT NULL,
    accepted          BOOLEAN     NOT NULL,
    reason_codes      TEXT[]      NOT NULL,
    reasons           TEXT        NOT NULL,
    compound          DOUBLE PRECISION NOT NULL,
    escalated         BOOLEAN     NOT NULL,
    rescued           BOOLEAN     NOT NULL,
    retained_comments INTEGER     NOT NULL,
    decided_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_id, post_id)
)`

// PostgresLedger appends one audit row per decided post.
type PostgresLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.VerdictLedger = (*PostgresLedger)(nil)

// OpenPostgres opens a lib/pq connection pool and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresLedger wires a sql.DB implementation.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	if db != nil {
		builder = builder.RunWith(db)
	}
	return &PostgresLedger{db: db, builder: builder}
}

// EnsureSchema creates the audit table when missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, verdictSchema); err != nil {
		return fmt.Errorf("create %s: %w", verdictTable, err)
	}
	return nil
}

// RecordVerdict inserts the decision; a repeated post within a run is ignored.
func (l *PostgresLedger) RecordVerdict(ctx context.Context, runID string, item domain.ContentItem, verdict domain.FilterVerdict, retained int) error {
	if l.db == nil {
		return nil
	}

	if _, err := l.insert(runID, item, verdict, retained).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert verdict %s: %w", item.ID, err)
	}
	return nil
}

func (l *PostgresLedger) insert(runID string, item domain.ContentItem, verdict domain.FilterVerdict, retained int) sq.InsertBuilder {
	return l.builder.
		Insert(verdictTable).
		Columns("run_id", "post_id", "title", "accepted", "reason_codes", "reasons",
			"compound", "escalated", "rescued", "retained_comments").
		Values(runID, item.ID, item.Title, verdict.Accepted, pq.StringArray(verdict.Codes()),
			verdict.ReasonText(), verdict.Sentiment.Compound, verdict.Escalated, verdict.Rescued, retained).
		Suffix("ON CONFLICT (run_id, post_id) DO NOTHING")
}

// Close releases the pool.
func (l *PostgresLedger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
