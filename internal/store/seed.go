package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/quill/internal/auth"
)

// Default demo credentials
const (
	DemoUsername = "demo"
	DemoPassword = "changeme"
)

// Seed creates demo data in the database: a demo user with a published post
// and a draft. It is a no-op unless enabled, or when the demo user exists.
func Seed(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := New(db)

	// Check if demo user already exists
	_, err := queries.GetUserByUsername(ctx, DemoUsername)
	if err == nil {
		slog.Info("demo user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for demo user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     DemoUsername,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating demo user: %w", err)
	}

	seedPosts := []CreatePostParams{
		{
			AuthorID:    user.ID,
			Title:       "Welcome to Quill",
			Body:        "Quill is a small blog engine. Register an account, then create your first post.",
			IsPublished: true,
			CreatedAt:   now,
		},
		{
			AuthorID:    user.ID,
			Title:       "Draft: ideas",
			Body:        "Drafts are only visible to their author.",
			IsPublished: false,
			CreatedAt:   now,
		},
	}
	for _, p := range seedPosts {
		if _, err := queries.CreatePost(ctx, p); err != nil {
			return fmt.Errorf("creating seed post %q: %w", p.Title, err)
		}
	}

	slog.Info("created demo user and posts",
		"id", user.ID,
		"username", user.Username,
		"password", DemoPassword,
	)

	return nil
}
