// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides database access: connection setup, embedded goose
// migrations, and query methods over the users, posts, and events tables.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// User is a row in the users table.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Post is a row in the posts table joined with its author's username.
type Post struct {
	ID          int64
	AuthorID    int64
	AuthorName  string
	Title       string
	Body        string
	IsPublished bool
	CreatedAt   time.Time
}

// Queries wraps a database handle and exposes typed query methods.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance for the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// IsUniqueViolation reports whether an error is a uniqueness constraint
// violation. The UNIQUE constraint on users.username is the authoritative
// guard against duplicate registrations; the handler's existence pre-check
// only exists for the friendly error message.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUserParams holds the values for CreateUser.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		arg.Username, arg.PasswordHash, arg.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           id,
		Username:     arg.Username,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    arg.CreatedAt,
	}, nil
}

// GetUserByID returns the user with the given id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// GetUserByUsername returns the user with the given username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// UsernameExists reports whether a user with the given username exists.
func (q *Queries) UsernameExists(ctx context.Context, username string) (bool, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// UpdateUserPasswordParams holds the values for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	ID           int64
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, arg.PasswordHash, arg.ID)
	return err
}

const postColumns = `p.id, p.author_id, u.username, p.title, p.body, p.is_published, p.created_at`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.IsPublished, &p.CreatedAt)
	return p, err
}

// CreatePostParams holds the values for CreatePost.
type CreatePostParams struct {
	AuthorID    int64
	Title       string
	Body        string
	IsPublished bool
	CreatedAt   time.Time
}

// CreatePost inserts a new post and returns its id.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO posts (author_id, title, body, is_published, created_at) VALUES (?, ?, ?, ?, ?)`,
		arg.AuthorID, arg.Title, arg.Body, arg.IsPublished, arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPost returns the post with the given id regardless of published state.
func (q *Queries) GetPost(ctx context.Context, id int64) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p JOIN users u ON p.author_id = u.id WHERE p.id = ?`, id)
	return scanPost(row)
}

// GetPublishedPost returns the post with the given id only if it is published.
func (q *Queries) GetPublishedPost(ctx context.Context, id int64) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p JOIN users u ON p.author_id = u.id
		 WHERE p.id = ? AND p.is_published = 1`, id)
	return scanPost(row)
}

// ListVisiblePosts returns posts visible to the given viewer, newest first.
// A post is visible when it is published or authored by the viewer. Anonymous
// viewers pass viewerID 0, which matches no author.
func (q *Queries) ListVisiblePosts(ctx context.Context, viewerID int64) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts p JOIN users u ON p.author_id = u.id
		 WHERE p.is_published = 1 OR p.author_id = ?
		 ORDER BY p.created_at DESC, p.id DESC`, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePostParams holds the values for UpdatePost.
type UpdatePostParams struct {
	Title       string
	Body        string
	IsPublished bool
	ID          int64
}

// UpdatePost replaces a post's title, body, and published state.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, is_published = ? WHERE id = ?`,
		arg.Title, arg.Body, arg.IsPublished, arg.ID)
	return err
}

// DeletePost removes the post with the given id.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

// CountPosts returns the total number of posts.
func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM posts`)
	var n int64
	err := row.Scan(&n)
	return n, err
}

// CreateEventParams holds the values for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an audit log entry and returns its id.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, user_id, ip_address, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.IPAddress, arg.Metadata, arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Event is an audit log row.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	IPAddress string
	Metadata  string
	CreatedAt time.Time
}

// ListEventsParams holds pagination values for ListEvents.
type ListEventsParams struct {
	Limit  int64
	Offset int64
}

// ListEvents returns audit log entries, newest first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, level, category, message, user_id, ip_address, metadata, created_at
		 FROM events
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message,
			&e.UserID, &e.IPAddress, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteOldEvents removes audit log entries created before the cutoff.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	return err
}

// CountEvents returns the total number of audit log entries.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM events`)
	var n int64
	err := row.Scan(&n)
	return n, err
}
