package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"mortisplay.ru/qa/internal/pkg/logger"
	"mortisplay.ru/qa/internal/qa"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS questions (
    id                 TEXT PRIMARY KEY,
    nickname           TEXT NOT NULL,
    question           TEXT NOT NULL,
    submitted_at       TIMESTAMPTZ NOT NULL,
    requester_identity TEXT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS questions_status_submitted_at
    ON questions (status, submitted_at);
`

// Postgres is a Store backed by PostgreSQL through a pgx connection pool.
// A single INSERT per create is atomic on the database side; no two
// concurrent writers can collide on id or lose each other's rows.
type Postgres struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds connection pool settings.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPostgres connects, verifies the connection and ensures the schema.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, unavailable("parse pool config", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute

	// Store timestamps in UTC regardless of server locale.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, unavailable("create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("ping database", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, unavailable("ensure schema", err)
	}

	logger.Info("Postgres store ready",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)
	return &Postgres{pool: pool}, nil
}

// Create implements Store.
func (p *Postgres) Create(ctx context.Context, in qa.NewSubmission) (*qa.Submission, error) {
	sub := qa.Submission{
		ID:                newID(),
		Nickname:          in.Nickname,
		Question:          in.Question,
		SubmittedAt:       in.SubmittedAt.UTC(),
		RequesterIdentity: in.RequesterIdentity,
		Status:            qa.StatusPending,
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO questions (id, nickname, question, submitted_at, requester_identity, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.Nickname, sub.Question, sub.SubmittedAt, sub.RequesterIdentity, string(sub.Status),
	)
	if err != nil {
		return nil, unavailable("insert question", err)
	}
	return &sub, nil
}

// ListApproved implements Store.
func (p *Postgres) ListApproved(ctx context.Context) ([]qa.Submission, error) {
	return p.ListByStatus(ctx, qa.StatusApproved)
}

// ListByStatus implements Store.
func (p *Postgres) ListByStatus(ctx context.Context, status qa.Status) ([]qa.Submission, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, nickname, question, submitted_at, requester_identity, status
		 FROM questions WHERE status = $1
		 ORDER BY submitted_at, id`,
		string(status),
	)
	if err != nil {
		return nil, unavailable("list questions", err)
	}
	defer rows.Close()

	out := make([]qa.Submission, 0)
	for rows.Next() {
		var s qa.Submission
		var st string
		if err := rows.Scan(&s.ID, &s.Nickname, &s.Question, &s.SubmittedAt, &s.RequesterIdentity, &st); err != nil {
			return nil, unavailable("scan question", err)
		}
		s.Status = qa.Status(st)
		s.SubmittedAt = s.SubmittedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate questions", err)
	}
	return out, nil
}

// SetStatus implements Store. The pending-only guard rides in the WHERE
// clause, so two concurrent decisions cannot both apply.
func (p *Postgres) SetStatus(ctx context.Context, id string, status qa.Status) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE questions SET status = $1 WHERE id = $2 AND status = $3`,
		string(status), id, string(qa.StatusPending),
	)
	if err != nil {
		return unavailable("update status", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish missing from already-decided.
	var current string
	err = p.pool.QueryRow(ctx, `SELECT status FROM questions WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("check status", err)
	}
	return ErrAlreadyModerated
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return unavailable("ping database", err)
	}
	return nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
