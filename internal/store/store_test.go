package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	// Create temp file for test database
	f, err := os.CreateTemp("", "quill-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	// Open database
	db, err := NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	// Run migrations
	if err := Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func createUser(t *testing.T, q *Queries, username string) User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     username,
		PasswordHash: "hashed-password",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return u
}

func createPost(t *testing.T, q *Queries, authorID int64, title string, published bool, created time.Time) int64 {
	t.Helper()
	id, err := q.CreatePost(context.Background(), CreatePostParams{
		AuthorID:    authorID,
		Title:       title,
		Body:        "body of " + title,
		IsPublished: published,
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("CreatePost(%q): %v", title, err)
	}
	return id
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	user := createUser(t, q, "alice")

	if user.ID == 0 {
		t.Error("CreateUser returned zero ID")
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want %q", user.Username, "alice")
	}

	got, err := q.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("GetUserByID Username = %q, want %q", got.Username, "alice")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	createUser(t, q, "alice")

	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     "alice",
		PasswordHash: "other-hash",
		CreatedAt:    time.Now(),
	})
	if err == nil {
		t.Fatal("duplicate username insert should fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	_, err := q.GetUserByUsername(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetUserByUsername error = %v, want sql.ErrNoRows", err)
	}
}

func TestUsernameExists(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	ctx := context.Background()

	exists, err := q.UsernameExists(ctx, "alice")
	if err != nil {
		t.Fatalf("UsernameExists: %v", err)
	}
	if exists {
		t.Error("UsernameExists = true before creation")
	}

	createUser(t, q, "alice")

	exists, err = q.UsernameExists(ctx, "alice")
	if err != nil {
		t.Fatalf("UsernameExists: %v", err)
	}
	if !exists {
		t.Error("UsernameExists = false after creation")
	}
}

func TestUpdateUserPassword(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	ctx := context.Background()
	user := createUser(t, q, "alice")

	if err := q.UpdateUserPassword(ctx, UpdateUserPasswordParams{
		PasswordHash: "new-hash",
		ID:           user.ID,
	}); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, err := q.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "new-hash")
	}
}

func TestPostLifecycle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	ctx := context.Background()
	user := createUser(t, q, "alice")

	id := createPost(t, q, user.ID, "hello", true, time.Now())

	post, err := q.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.Title != "hello" {
		t.Errorf("Title = %q, want %q", post.Title, "hello")
	}
	if post.AuthorName != "alice" {
		t.Errorf("AuthorName = %q, want %q", post.AuthorName, "alice")
	}
	if !post.IsPublished {
		t.Error("IsPublished = false, want true")
	}

	if err := q.UpdatePost(ctx, UpdatePostParams{
		Title:       "updated",
		Body:        "new body",
		IsPublished: false,
		ID:          id,
	}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}

	post, err = q.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost after update: %v", err)
	}
	if post.Title != "updated" || post.Body != "new body" || post.IsPublished {
		t.Errorf("post after update = %+v", post)
	}

	if err := q.DeletePost(ctx, id); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := q.GetPost(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPost after delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestGetPublishedPost(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	ctx := context.Background()
	user := createUser(t, q, "alice")

	draftID := createPost(t, q, user.ID, "draft", false, time.Now())
	pubID := createPost(t, q, user.ID, "published", true, time.Now())

	if _, err := q.GetPublishedPost(ctx, draftID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPublishedPost(draft) error = %v, want sql.ErrNoRows", err)
	}
	post, err := q.GetPublishedPost(ctx, pubID)
	if err != nil {
		t.Fatalf("GetPublishedPost(published): %v", err)
	}
	if post.Title != "published" {
		t.Errorf("Title = %q, want %q", post.Title, "published")
	}
}

func TestListVisiblePosts(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	ctx := context.Background()
	alice := createUser(t, q, "alice")
	bob := createUser(t, q, "bob")

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	createPost(t, q, alice.ID, "alice draft", false, base.Add(3*time.Hour))
	createPost(t, q, alice.ID, "alice published", true, base.Add(2*time.Hour))
	createPost(t, q, bob.ID, "bob published", true, base.Add(1*time.Hour))
	createPost(t, q, bob.ID, "bob draft", false, base)

	titles := func(posts []Post) []string {
		var out []string
		for _, p := range posts {
			out = append(out, p.Title)
		}
		return out
	}

	t.Run("anonymous sees only published, newest first", func(t *testing.T) {
		posts, err := q.ListVisiblePosts(ctx, 0)
		if err != nil {
			t.Fatalf("ListVisiblePosts: %v", err)
		}
		got := titles(posts)
		want := []string{"alice published", "bob published"}
		if len(got) != len(want) {
			t.Fatalf("titles = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("titles[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("author sees own drafts", func(t *testing.T) {
		posts, err := q.ListVisiblePosts(ctx, alice.ID)
		if err != nil {
			t.Fatalf("ListVisiblePosts: %v", err)
		}
		got := titles(posts)
		want := []string{"alice draft", "alice published", "bob published"}
		if len(got) != len(want) {
			t.Fatalf("titles = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("titles[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("author never sees another user's draft", func(t *testing.T) {
		posts, err := q.ListVisiblePosts(ctx, bob.ID)
		if err != nil {
			t.Fatalf("ListVisiblePosts: %v", err)
		}
		for _, p := range posts {
			if p.Title == "alice draft" {
				t.Error("bob can see alice's draft")
			}
		}
	})
}

func TestCreateEvent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	ctx := context.Background()

	id, err := q.CreateEvent(ctx, CreateEventParams{
		Level:     "info",
		Category:  "auth",
		Message:   "user logged in",
		IPAddress: "127.0.0.1",
		Metadata:  `{"username":"alice"}`,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if id == 0 {
		t.Error("CreateEvent returned zero ID")
	}

	n, err := q.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("CountEvents = %d, want 1", n)
	}
}

func TestSeed(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()

	// Disabled seed is a no-op
	if err := Seed(ctx, db, false); err != nil {
		t.Fatalf("Seed(disabled): %v", err)
	}
	q := New(db)
	if exists, _ := q.UsernameExists(ctx, DemoUsername); exists {
		t.Fatal("disabled seed created the demo user")
	}

	if err := Seed(ctx, db, true); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if exists, _ := q.UsernameExists(ctx, DemoUsername); !exists {
		t.Fatal("seed did not create the demo user")
	}
	n, err := q.CountPosts(ctx)
	if err != nil {
		t.Fatalf("CountPosts: %v", err)
	}
	if n != 2 {
		t.Errorf("CountPosts = %d, want 2", n)
	}

	// Idempotent
	if err := Seed(ctx, db, true); err != nil {
		t.Fatalf("Seed (second run): %v", err)
	}
	n, _ = q.CountPosts(ctx)
	if n != 2 {
		t.Errorf("CountPosts after reseed = %d, want 2", n)
	}
}
