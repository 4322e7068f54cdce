package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEvent(t *testing.T, q *Queries, level, category, message string, created time.Time) int64 {
	t.Helper()
	id, err := q.CreateEvent(context.Background(), CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  "{}",
		CreatedAt: created,
	})
	require.NoError(t, err)
	return id
}

func TestListEventsNewestFirst(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	q := New(db)
	ctx := context.Background()

	now := time.Now()
	createEvent(t, q, "info", "auth", "first", now.Add(-2*time.Hour))
	createEvent(t, q, "warning", "post", "second", now.Add(-time.Hour))
	createEvent(t, q, "error", "system", "third", now)

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 10, Offset: 0})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "third", events[0].Message)
	assert.Equal(t, "second", events[1].Message)
	assert.Equal(t, "first", events[2].Message)
}

func TestListEventsPagination(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	q := New(db)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 5; i++ {
		createEvent(t, q, "info", "system", "event", now.Add(time.Duration(i)*time.Minute))
	}

	page, err := q.ListEvents(ctx, ListEventsParams{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestDeleteOldEventsKeepsRecent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	q := New(db)
	ctx := context.Background()

	now := time.Now()
	createEvent(t, q, "info", "system", "old", now.Add(-48*time.Hour))
	createEvent(t, q, "info", "system", "recent", now)

	require.NoError(t, q.DeleteOldEvents(ctx, now.Add(-24*time.Hour)))

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 10, Offset: 0})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "recent", events[0].Message)

	count, err := q.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCreateEventWithUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()
	q := New(db)
	ctx := context.Background()

	user := createUser(t, q, "auditor")
	id, err := q.CreateEvent(ctx, CreateEventParams{
		Level:     "info",
		Category:  "auth",
		Message:   "User logged in",
		UserID:    sql.NullInt64{Int64: user.ID, Valid: true},
		IPAddress: "192.0.2.10",
		Metadata:  `{"browser":"Firefox"}`,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 1, Offset: 0})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, user.ID, events[0].UserID.Int64)
	assert.Equal(t, "192.0.2.10", events[0].IPAddress)
	assert.Equal(t, `{"browser":"Firefox"}`, events[0].Metadata)
}
