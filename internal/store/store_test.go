package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mortisplay.ru/qa/internal/qa"
)

// storeFactories returns every backend that can run in a unit test.
// Postgres is covered by the same contract but needs a live server.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"file": func(t *testing.T) Store {
			f, err := NewFile(filepath.Join(t.TempDir(), "questions.json"))
			require.NoError(t, err)
			return f
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "questions.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func newSub(nickname string, at time.Time) qa.NewSubmission {
	return qa.NewSubmission{
		Nickname:          nickname,
		Question:          "Когда новое видео?",
		SubmittedAt:       at,
		RequesterIdentity: "198.51.100.7",
	}
}

func TestStore_CreateAssignsIDAndPending(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			sub, err := s.Create(ctx, newSub("Mortis", time.Now().UTC()))
			require.NoError(t, err)
			require.NotEmpty(t, sub.ID)
			require.Equal(t, qa.StatusPending, sub.Status)
			require.Equal(t, "Mortis", sub.Nickname)
		})
	}
}

func TestStore_ListApprovedEmptyIsEmptySlice(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			got, err := s.ListApproved(context.Background())
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Empty(t, got)
		})
	}
}

func TestStore_ModerationGateAndOrdering(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

			first, err := s.Create(ctx, newSub("первый", base))
			require.NoError(t, err)
			second, err := s.Create(ctx, newSub("второй", base.Add(time.Minute)))
			require.NoError(t, err)
			third, err := s.Create(ctx, newSub("третий", base.Add(2*time.Minute)))
			require.NoError(t, err)

			// Nothing is public until moderated.
			approved, err := s.ListApproved(ctx)
			require.NoError(t, err)
			require.Empty(t, approved)

			require.NoError(t, s.SetStatus(ctx, third.ID, qa.StatusApproved))
			require.NoError(t, s.SetStatus(ctx, first.ID, qa.StatusApproved))
			require.NoError(t, s.SetStatus(ctx, second.ID, qa.StatusRejected))

			approved, err = s.ListApproved(ctx)
			require.NoError(t, err)
			require.Len(t, approved, 2)
			// Oldest first, regardless of moderation order.
			require.Equal(t, first.ID, approved[0].ID)
			require.Equal(t, third.ID, approved[1].ID)

			pending, err := s.ListByStatus(ctx, qa.StatusPending)
			require.NoError(t, err)
			require.Empty(t, pending)
		})
	}
}

func TestStore_SetStatusIsOneWay(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			sub, err := s.Create(ctx, newSub("Mortis", time.Now().UTC()))
			require.NoError(t, err)

			require.NoError(t, s.SetStatus(ctx, sub.ID, qa.StatusApproved))
			require.ErrorIs(t, s.SetStatus(ctx, sub.ID, qa.StatusRejected), ErrAlreadyModerated)
			// Approved can never go back to pending either.
			require.ErrorIs(t, s.SetStatus(ctx, sub.ID, qa.StatusPending), ErrAlreadyModerated)

			require.ErrorIs(t, s.SetStatus(ctx, "no-such-id", qa.StatusApproved), ErrNotFound)
		})
	}
}

func TestStore_ConcurrentCreates(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			const n = 16
			var wg sync.WaitGroup
			ids := make(chan string, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					sub, err := s.Create(ctx, newSub("гость", time.Now().UTC()))
					if err != nil {
						t.Error(err)
						return
					}
					ids <- sub.ID
				}()
			}
			wg.Wait()
			close(ids)

			seen := make(map[string]bool)
			for id := range ids {
				require.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
			}
			require.Len(t, seen, n)

			// No record was lost to a concurrent write.
			pending, err := s.ListByStatus(ctx, qa.StatusPending)
			require.NoError(t, err)
			require.Len(t, pending, n)
		})
	}
}

func TestFile_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "questions.json")

	f, err := NewFile(path)
	require.NoError(t, err)
	sub, err := f.Create(ctx, newSub("Mortis", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, f.SetStatus(ctx, sub.ID, qa.StatusApproved))

	reopened, err := NewFile(path)
	require.NoError(t, err)
	approved, err := reopened.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, sub.ID, approved[0].ID)
	require.Equal(t, "Mortis", approved[0].Nickname)
	require.True(t, approved[0].SubmittedAt.Equal(sub.SubmittedAt))
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "questions.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	sub, err := s.Create(ctx, newSub("Mortis", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, sub.ID, qa.StatusApproved))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	approved, err := reopened.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, sub.ID, approved[0].ID)
}

func TestNewID_SortsByCreationTime(t *testing.T) {
	// UUIDv7 ids are time-ordered, which keeps same-timestamp tie-breaks
	// stable in list ordering.
	a := newID()
	time.Sleep(2 * time.Millisecond)
	b := newID()
	require.Less(t, a, b)
}
