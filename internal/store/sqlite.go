package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "modernc.org/sqlite"

	"mortisplay.ru/qa/internal/qa"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS questions (
    id                 TEXT PRIMARY KEY,
    nickname           TEXT NOT NULL,
    question           TEXT NOT NULL,
    submitted_at       TEXT NOT NULL,
    requester_identity TEXT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending'
);
CREATE INDEX IF NOT EXISTS questions_status_submitted_at
    ON questions (status, submitted_at);
`

// SQLite is a Store backed by a local SQLite database (pure-Go driver).
// The right default for a site this size: durable, relational, zero ops.
//
// SQLite allows one writer at a time; the mutex serializes our writers up
// front instead of bouncing on SQLITE_BUSY.
type SQLite struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, unavailable("open database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable("ping database", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, unavailable("ensure schema", err)
	}
	return &SQLite{db: db}, nil
}

// Create implements Store.
func (s *SQLite) Create(ctx context.Context, in qa.NewSubmission) (*qa.Submission, error) {
	sub := qa.Submission{
		ID:                newID(),
		Nickname:          in.Nickname,
		Question:          in.Question,
		SubmittedAt:       in.SubmittedAt.UTC(),
		RequesterIdentity: in.RequesterIdentity,
		Status:            qa.StatusPending,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, nickname, question, submitted_at, requester_identity, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Nickname, sub.Question, sub.SubmittedAt.Format(timeLayout), sub.RequesterIdentity, string(sub.Status),
	)
	if err != nil {
		return nil, unavailable("insert question", err)
	}
	return &sub, nil
}

// ListApproved implements Store.
func (s *SQLite) ListApproved(ctx context.Context) ([]qa.Submission, error) {
	return s.ListByStatus(ctx, qa.StatusApproved)
}

// ListByStatus implements Store.
func (s *SQLite) ListByStatus(ctx context.Context, status qa.Status) ([]qa.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nickname, question, submitted_at, requester_identity, status
		 FROM questions WHERE status = ?
		 ORDER BY submitted_at, id`,
		string(status),
	)
	if err != nil {
		return nil, unavailable("list questions", err)
	}
	defer rows.Close()

	out := make([]qa.Submission, 0)
	for rows.Next() {
		var sub qa.Submission
		var submittedAt, st string
		if err := rows.Scan(&sub.ID, &sub.Nickname, &sub.Question, &submittedAt, &sub.RequesterIdentity, &st); err != nil {
			return nil, unavailable("scan question", err)
		}
		ts, err := parseTime(submittedAt)
		if err != nil {
			return nil, unavailable("decode submitted_at", err)
		}
		sub.SubmittedAt = ts
		sub.Status = qa.Status(st)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate questions", err)
	}
	return out, nil
}

// SetStatus implements Store.
func (s *SQLite) SetStatus(ctx context.Context, id string, status qa.Status) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ? WHERE id = ? AND status = ?`,
		string(status), id, string(qa.StatusPending),
	)
	if err != nil {
		return unavailable("update status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM questions WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("check status", err)
	}
	return ErrAlreadyModerated
}

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping database", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
