package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"mortisplay.ru/qa/internal/qa"
)

// fileRecord is the on-disk shape. The requester identity is persisted (the
// rate limiter survives restarts conceptually, and moderators may need it
// for abuse reports) but it never crosses a read API.
type fileRecord struct {
	ID                string    `json:"id"`
	Nickname          string    `json:"nickname"`
	Question          string    `json:"question"`
	SubmittedAt       string    `json:"submitted_at"`
	RequesterIdentity string    `json:"requester_identity,omitempty"`
	Status            qa.Status `json:"status"`
}

// File is a Store backed by a single JSON document.
//
// Writes hold an exclusive lock and go through a temp file + rename, so a
// crash mid-write leaves the previous document intact and two concurrent
// creates can never lose each other's records.
type File struct {
	mu   sync.RWMutex
	path string
}

// NewFile opens (creating if needed) the JSON store at path.
func NewFile(path string) (*File, error) {
	f := &File{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, unavailable("create store directory", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := f.writeAll(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, unavailable("stat store file", err)
	}
	return f, nil
}

// Create implements Store.
func (f *File) Create(ctx context.Context, in qa.NewSubmission) (*qa.Submission, error) {
	sub := qa.Submission{
		ID:                newID(),
		Nickname:          in.Nickname,
		Question:          in.Question,
		SubmittedAt:       in.SubmittedAt.UTC(),
		RequesterIdentity: in.RequesterIdentity,
		Status:            qa.StatusPending,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readAll()
	if err != nil {
		return nil, err
	}
	records = append(records, toRecord(sub))
	if err := f.writeAll(records); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListApproved implements Store.
func (f *File) ListApproved(ctx context.Context) ([]qa.Submission, error) {
	return f.ListByStatus(ctx, qa.StatusApproved)
}

// ListByStatus implements Store.
func (f *File) ListByStatus(ctx context.Context, status qa.Status) ([]qa.Submission, error) {
	f.mu.RLock()
	records, err := f.readAll()
	f.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]qa.Submission, 0)
	for _, r := range records {
		if r.Status != status {
			continue
		}
		sub, err := fromRecord(r)
		if err != nil {
			return nil, unavailable("decode record "+r.ID, err)
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// SetStatus implements Store.
func (f *File) SetStatus(ctx context.Context, id string, status qa.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.readAll()
	if err != nil {
		return err
	}
	for i, r := range records {
		if r.ID != id {
			continue
		}
		if r.Status != qa.StatusPending {
			return ErrAlreadyModerated
		}
		records[i].Status = status
		return f.writeAll(records)
	}
	return ErrNotFound
}

// Ping implements Store.
func (f *File) Ping(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, err := os.Stat(f.path); err != nil {
		return unavailable("stat store file", err)
	}
	return nil
}

// Close implements Store.
func (f *File) Close() error { return nil }

func (f *File) readAll() ([]fileRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, unavailable("read store file", err)
	}
	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, unavailable("parse store file", err)
	}
	return records, nil
}

func (f *File) writeAll(records []fileRecord) error {
	if records == nil {
		records = []fileRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return unavailable("encode store file", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".questions-*.json")
	if err != nil {
		return unavailable("create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return unavailable("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return unavailable("close temp file", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return unavailable("replace store file", err)
	}
	return nil
}

func toRecord(s qa.Submission) fileRecord {
	return fileRecord{
		ID:                s.ID,
		Nickname:          s.Nickname,
		Question:          s.Question,
		SubmittedAt:       s.SubmittedAt.UTC().Format(timeLayout),
		RequesterIdentity: s.RequesterIdentity,
		Status:            s.Status,
	}
}

func fromRecord(r fileRecord) (qa.Submission, error) {
	ts, err := parseTime(r.SubmittedAt)
	if err != nil {
		return qa.Submission{}, fmt.Errorf("submitted_at: %w", err)
	}
	return qa.Submission{
		ID:                r.ID,
		Nickname:          r.Nickname,
		Question:          r.Question,
		SubmittedAt:       ts,
		RequesterIdentity: r.RequesterIdentity,
		Status:            r.Status,
	}, nil
}
