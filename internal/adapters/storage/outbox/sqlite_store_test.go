package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	store "clubhouse/internal/adapters/storage/outbox"
	"clubhouse/internal/adapters/storage/storagetest"
	"clubhouse/internal/domain/failure"
	domain "clubhouse/internal/domain/outbox"
)

func newEntry(t *testing.T, id string, created time.Time) domain.Entry {
	t.Helper()
	e, err := domain.NewEmail(id, created, domain.EmailPayload{
		To:       id + "@clubhouse.test",
		Subject:  "Application approved",
		Markdown: "Welcome to the club.",
		Kind:     "application.approved",
	})
	require.NoError(t, err)
	return e
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	db := storagetest.OpenDB(t)
	s := store.NewSQLiteStore(db)
	ctx := context.Background()

	e := newEntry(t, "o1", storagetest.Epoch)
	require.NoError(t, s.Save(ctx, e))

	e.MarkAttempt(storagetest.Epoch.Add(time.Minute))
	e.MarkFailed(errors.New("provider timeout"))
	e.Payload = `{"to":"someone-else@clubhouse.test"}`
	require.NoError(t, s.Save(ctx, e))

	got, err := s.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRetrying, got.Status)
	require.Equal(t, 1, got.Attempts)
	require.Equal(t, "provider timeout", got.ErrorMessage)
	require.True(t, got.LastAttemptedAt.Equal(storagetest.Epoch.Add(time.Minute)))

	payload, err := got.Email()
	require.NoError(t, err)
	require.Equal(t, "o1@clubhouse.test", payload.To)

	_, err = s.GetByID(ctx, "missing")
	require.ErrorIs(t, err, failure.ErrNotFound)
}

func TestSQLiteStore_ListsAndCounts(t *testing.T) {
	db := storagetest.OpenDB(t)
	s := store.NewSQLiteStore(db)
	ctx := context.Background()

	pending := newEntry(t, "pending", storagetest.Epoch.Add(2*time.Minute))
	retrying := newEntry(t, "retrying", storagetest.Epoch.Add(time.Minute))
	retrying.MarkAttempt(storagetest.Epoch.Add(3 * time.Minute))
	retrying.MarkFailed(errors.New("503"))

	failed := newEntry(t, "failed", storagetest.Epoch)
	for i := range failed.MaxAttempts {
		failed.MarkAttempt(storagetest.Epoch.Add(time.Duration(i) * time.Minute))
		failed.MarkFailed(errors.New("bounced"))
	}
	done := newEntry(t, "done", storagetest.Epoch)
	done.MarkAttempt(storagetest.Epoch)
	done.MarkSuccess("msg-1")

	for _, e := range []domain.Entry{pending, retrying, failed, done} {
		require.NoError(t, s.Save(ctx, e))
	}

	due, err := s.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "retrying", due[0].ID)
	require.Equal(t, "pending", due[1].ID)

	limited, err := s.ListPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	exhausted, err := s.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	require.Equal(t, "failed", exhausted[0].ID)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{
		domain.StatusPending:  1,
		domain.StatusRetrying: 1,
		domain.StatusFailed:   1,
		domain.StatusDone:     1,
	}, counts)
}
