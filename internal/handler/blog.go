// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/quill/internal/middleware"
	"github.com/olegiv/quill/internal/model"
	"github.com/olegiv/quill/internal/quotes"
	"github.com/olegiv/quill/internal/render"
	"github.com/olegiv/quill/internal/service"
	"github.com/olegiv/quill/internal/store"
)

// BlogHandler handles the post listing and CRUD routes.
type BlogHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
	quoteService *quotes.Service
}

// NewBlogHandler creates a new BlogHandler.
// The quote service may be nil, in which case pages render without quotes.
func NewBlogHandler(db *sql.DB, renderer *render.Renderer, qs *quotes.Service) *BlogHandler {
	return &BlogHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
		quoteService: qs,
	}
}

// indexData is the template payload for the post listing.
type indexData struct {
	Posts  []store.Post
	Quotes []quotes.Quote
}

// postFormData is the template payload for the create and update forms.
// Title and Body carry resubmitted values after a validation error.
type postFormData struct {
	Title       string
	Body        string
	IsPublished bool
	Post        store.Post
}

// showData is the template payload for a single post page.
type showData struct {
	Post store.Post
}

// Index renders the post listing.
// Shows published posts to everyone plus the viewer's own drafts.
func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r)

	posts, err := h.queries.ListVisiblePosts(r.Context(), viewerID)
	if err != nil {
		logAndInternalError(w, "listing posts", "error", err)
		return
	}

	data := indexData{Posts: posts}
	if h.quoteService != nil {
		data.Quotes = h.quoteService.Get(r.Context())
	}

	if err := h.renderer.Render(w, r, "blog/index", render.TemplateData{
		Title: "Posts",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render index", "error", err)
	}
}

// Show renders a single post.
// Drafts are visible only to their author; everyone else gets a 404 so
// draft existence is not leaked.
func (h *BlogHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Anonymous readers only ever see published posts, so the narrower
	// query suffices; a logged-in viewer may be looking at their own draft.
	viewerID := middleware.GetUserID(r)
	var post store.Post
	if viewerID == 0 {
		post, err = h.queries.GetPublishedPost(r.Context(), id)
	} else {
		post, err = h.queries.GetPost(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		logAndInternalError(w, "loading post", "error", err, "post_id", id)
		return
	}

	if !post.IsPublished && post.AuthorID != viewerID {
		http.NotFound(w, r)
		return
	}

	if err := h.renderer.Render(w, r, "blog/show", render.TemplateData{
		Title: post.Title,
		User:  middleware.GetUser(r),
		Data:  showData{Post: post},
	}); err != nil {
		logAndInternalError(w, "render post", "error", err)
	}
}

// CreateForm renders the post creation page.
func (h *BlogHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "blog/create", render.TemplateData{
		Title: "New Post",
		User:  middleware.GetUser(r),
		Data:  postFormData{},
	}); err != nil {
		logAndInternalError(w, "render create form", "error", err)
	}
}

// Create handles the post creation form submission.
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteCreate) {
		return
	}

	user := middleware.GetUser(r)
	if user == nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	title := r.PostFormValue("title")
	body := r.PostFormValue("body")
	isPublished := r.PostFormValue("is_published") == "1"

	if title == "" {
		flashError(w, r, h.renderer, RouteCreate, "Title is required.")
		return
	}

	id, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		AuthorID:    user.ID,
		Title:       title,
		Body:        body,
		IsPublished: isPublished,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "creating post", "error", err)
		return
	}

	slog.Info("post created", "post_id", id, "user_id", user.ID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post created", &user.ID,
		middleware.GetClientIP(r), map[string]any{"post_id": id, "title": title})

	flashSuccess(w, r, h.renderer, redirectIndex, "Post created.")
}

// EditForm renders the post update page for the post's author.
func (h *BlogHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	post, ok := h.requireOwnedPost(w, r)
	if !ok {
		return
	}

	if err := h.renderer.Render(w, r, "blog/update", render.TemplateData{
		Title: fmt.Sprintf("Edit %q", post.Title),
		User:  middleware.GetUser(r),
		Data:  postFormData{Post: post},
	}); err != nil {
		logAndInternalError(w, "render update form", "error", err)
	}
}

// Update handles the post update form submission.
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	post, ok := h.requireOwnedPost(w, r)
	if !ok {
		return
	}

	updateURL := fmt.Sprintf("/%d/update", post.ID)

	if !parseFormOrRedirect(w, r, h.renderer, updateURL) {
		return
	}

	title := r.PostFormValue("title")
	body := r.PostFormValue("body")
	isPublished := r.PostFormValue("is_published") == "1"

	if title == "" {
		flashError(w, r, h.renderer, updateURL, "Title is required.")
		return
	}

	if err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		Title:       title,
		Body:        body,
		IsPublished: isPublished,
		ID:          post.ID,
	}); err != nil {
		logAndInternalError(w, "updating post", "error", err, "post_id", post.ID)
		return
	}

	userID := middleware.GetUserID(r)
	slog.Info("post updated", "post_id", post.ID, "user_id", userID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post updated", &userID,
		middleware.GetClientIP(r), map[string]any{"post_id": post.ID, "title": title})

	flashSuccess(w, r, h.renderer, redirectIndex, "Post updated.")
}

// Delete handles the post delete form submission.
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := h.requireOwnedPost(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeletePost(r.Context(), post.ID); err != nil {
		logAndInternalError(w, "deleting post", "error", err, "post_id", post.ID)
		return
	}

	userID := middleware.GetUserID(r)
	slog.Info("post deleted", "post_id", post.ID, "user_id", userID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post deleted", &userID,
		middleware.GetClientIP(r), map[string]any{"post_id": post.ID, "title": post.Title})

	flashSuccess(w, r, h.renderer, redirectIndex, "Post deleted.")
}

// requireOwnedPost loads the post named by the id route parameter and verifies
// the current user authored it. A missing post 404s before the ownership check
// 403s, so non-authors cannot probe which ids exist.
func (h *BlogHandler) requireOwnedPost(w http.ResponseWriter, r *http.Request) (store.Post, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return store.Post{}, false
	}

	post, err := h.queries.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return store.Post{}, false
		}
		logAndInternalError(w, "loading post", "error", err, "post_id", id)
		return store.Post{}, false
	}

	user := middleware.GetUser(r)
	if user == nil || post.AuthorID != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return store.Post{}, false
	}

	return post, true
}
