package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/olegiv/quill/internal/model"
	"github.com/olegiv/quill/internal/store"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "quill-logging-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}

	return db, cleanup
}

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func TestEventLogHandler_Handle_ErrorLevel(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Error("database connection failed", "path", "./data/quill.db")

	// Give it a moment to write
	time.Sleep(50 * time.Millisecond)

	q := store.New(db)
	events, err := q.ListEvents(context.Background(), store.ListEventsParams{
		Limit:  10,
		Offset: 0,
	})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelError)
	}
	if events[0].Message != "database connection failed" {
		t.Errorf("Message = %q, want %q", events[0].Message, "database connection failed")
	}
}

func TestEventLogHandler_Handle_WarnLevel(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Warn("slow query detected", "duration_ms", 5000)

	time.Sleep(50 * time.Millisecond)

	q := store.New(db)
	events, err := q.ListEvents(context.Background(), store.ListEventsParams{
		Limit:  10,
		Offset: 0,
	})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Level != model.EventLevelWarning {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelWarning)
	}
}

func TestEventLogHandler_Handle_InfoNotLogged(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Info("server started", "addr", "localhost:8080")

	time.Sleep(50 * time.Millisecond)

	q := store.New(db)
	count, err := q.CountEvents(context.Background())
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}

	if count != 0 {
		t.Errorf("expected 0 events for INFO level, got %d", count)
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	// With a custom INFO threshold, INFO logs are recorded too
	handler := NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo)
	logger := slog.New(handler)

	logger.Info("server started", "addr", "localhost:8080")

	time.Sleep(50 * time.Millisecond)

	q := store.New(db)
	count, err := q.CountEvents(context.Background())
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}

	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}
}

func TestEventLogHandler_CategoryExtraction(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		attrs    []any
		expected string
	}{
		{"explicit category", "something happened", []any{"category", model.EventCategoryPost}, model.EventCategoryPost},
		{"inferred auth from login", "login failed for user", nil, model.EventCategoryAuth},
		{"inferred post", "post created", nil, model.EventCategoryPost},
		{"inferred user", "account updated", nil, model.EventCategoryUser},
		{"default system", "disk almost full", nil, model.EventCategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := testDB(t)
			defer cleanup()

			handler := NewEventLogHandler(discardHandler{}, db)
			logger := slog.New(handler)

			logger.Warn(tt.message, tt.attrs...)
			time.Sleep(50 * time.Millisecond)

			q := store.New(db)
			events, err := q.ListEvents(context.Background(), store.ListEventsParams{Limit: 1})
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Category != tt.expected {
				t.Errorf("Category = %q, want %q", events[0].Category, tt.expected)
			}
		})
	}
}

func TestEventLogHandler_MetadataJSON(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Warn("post rejected", "title", `Hello "World"`)
	time.Sleep(50 * time.Millisecond)

	q := store.New(db)
	events, err := q.ListEvents(context.Background(), store.ListEventsParams{Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	want := `{"title":"Hello \"World\""}`
	if events[0].Metadata != want {
		t.Errorf("Metadata = %q, want %q", events[0].Metadata, want)
	}
}
