// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quill/internal/store"
)

// getAs issues a GET as the given user (nil for anonymous).
func getAs(sm *scs.SessionManager, h http.HandlerFunc, target string, user *store.User, params map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = requestWithSession(sm, req)
	if user != nil {
		req = requestWithUser(req, *user)
	}
	if params != nil {
		req = requestWithURLParams(req, params)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// postAs issues a form POST as the given user.
func postAs(sm *scs.SessionManager, h http.HandlerFunc, target string, user *store.User, params map[string]string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithSession(sm, req)
	if user != nil {
		req = requestWithUser(req, *user)
	}
	if params != nil {
		req = requestWithURLParams(req, params)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestIndexVisibility(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")
	bob := createTestUser(t, db, "bob", "secret")
	createTestPost(t, db, alice.ID, "Published by alice", true)
	createTestPost(t, db, alice.ID, "Draft by alice", false)
	createTestPost(t, db, bob.ID, "Draft by bob", false)

	t.Run("anonymous sees only published", func(t *testing.T) {
		rec := getAs(sm, h.Index, "/", nil, nil)
		assertStatus(t, rec.Code, http.StatusOK)

		body := rec.Body.String()
		if !strings.Contains(body, "Published by alice") {
			t.Error("published post missing from index")
		}
		if strings.Contains(body, "Draft by alice") || strings.Contains(body, "Draft by bob") {
			t.Error("draft visible to anonymous viewer")
		}
	})

	t.Run("author sees own drafts", func(t *testing.T) {
		rec := getAs(sm, h.Index, "/", &alice, nil)
		body := rec.Body.String()

		if !strings.Contains(body, "Draft by alice") {
			t.Error("own draft missing from index")
		}
		if strings.Contains(body, "Draft by bob") {
			t.Error("other author's draft visible")
		}
	})
}

func TestShowPost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")
	bob := createTestUser(t, db, "bob", "secret")
	publishedID := createTestPost(t, db, alice.ID, "Hello World", true)
	draftID := createTestPost(t, db, alice.ID, "Secret Draft", false)

	t.Run("published post visible to anyone", func(t *testing.T) {
		rec := getAs(sm, h.Show, "/1", nil, map[string]string{"id": itoa(publishedID)})
		assertStatus(t, rec.Code, http.StatusOK)
		if !strings.Contains(rec.Body.String(), "Hello World") {
			t.Error("post content missing")
		}
	})

	t.Run("draft hidden from others", func(t *testing.T) {
		rec := getAs(sm, h.Show, "/2", &bob, map[string]string{"id": itoa(draftID)})
		assertStatus(t, rec.Code, http.StatusNotFound)
	})

	t.Run("draft hidden from anonymous", func(t *testing.T) {
		rec := getAs(sm, h.Show, "/2", nil, map[string]string{"id": itoa(draftID)})
		assertStatus(t, rec.Code, http.StatusNotFound)
	})

	t.Run("draft visible to author", func(t *testing.T) {
		rec := getAs(sm, h.Show, "/2", &alice, map[string]string{"id": itoa(draftID)})
		assertStatus(t, rec.Code, http.StatusOK)
	})

	t.Run("missing post", func(t *testing.T) {
		rec := getAs(sm, h.Show, "/999", nil, map[string]string{"id": "999"})
		assertStatus(t, rec.Code, http.StatusNotFound)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		rec := getAs(sm, h.Show, "/abc", nil, map[string]string{"id": "abc"})
		assertStatus(t, rec.Code, http.StatusNotFound)
	})
}

func TestCreatePost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")

	rec := postAs(sm, h.Create, "/create", &alice, nil, url.Values{
		"title":        {"My Post"},
		"body":         {"Some **markdown** body"},
		"is_published": {"1"},
	})

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	var title, body string
	var isPublished bool
	err := db.QueryRow("SELECT title, body, is_published FROM posts WHERE author_id = ?", alice.ID).
		Scan(&title, &body, &isPublished)
	if err != nil {
		t.Fatalf("reading post: %v", err)
	}
	if title != "My Post" {
		t.Errorf("title = %q", title)
	}
	if !isPublished {
		t.Error("post not published")
	}

	// Creation logs a post event
	var events int
	_ = db.QueryRow("SELECT COUNT(*) FROM events WHERE category = 'post'").Scan(&events)
	if events != 1 {
		t.Errorf("post events = %d, want 1", events)
	}
}

func TestCreatePostFlashesSuccess(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")

	wrapped := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Create(w, requestWithUser(r, alice))
	}))

	form := url.Values{"title": {"My Post"}, "body": {"body"}}
	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if flash := popFlash(t, sm, rec); flash != "Post created." {
		t.Errorf("flash = %q, want %q", flash, "Post created.")
	}
}

func TestCreateWithoutUserForbidden(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	// No user in context, as if the login guard were bypassed
	rec := postAs(sm, h.Create, "/create", nil, nil, url.Values{
		"title": {"Orphan Post"},
		"body":  {"body"},
	})

	assertStatus(t, rec.Code, http.StatusForbidden)

	var count int
	_ = db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if count != 0 {
		t.Errorf("post count = %d, want 0", count)
	}
}

func TestCreatePostTitleRequired(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")

	rec := postAs(sm, h.Create, "/create", &alice, nil, url.Values{
		"title": {""},
		"body":  {"body without title"},
	})

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/create" {
		t.Errorf("Location = %q, want /create", loc)
	}

	var count int
	_ = db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if count != 0 {
		t.Errorf("post count = %d, want 0", count)
	}
}

func TestCreateDefaultsToDraft(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")

	postAs(sm, h.Create, "/create", &alice, nil, url.Values{
		"title": {"Draft Post"},
		"body":  {"body"},
	})

	var isPublished bool
	if err := db.QueryRow("SELECT is_published FROM posts").Scan(&isPublished); err != nil {
		t.Fatalf("reading post: %v", err)
	}
	if isPublished {
		t.Error("post without is_published flag should be a draft")
	}
}

func TestUpdatePost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")
	postID := createTestPost(t, db, alice.ID, "Old Title", false)

	rec := postAs(sm, h.Update, "/1/update", &alice, map[string]string{"id": itoa(postID)}, url.Values{
		"title":        {"New Title"},
		"body":         {"new body"},
		"is_published": {"1"},
	})

	assertStatus(t, rec.Code, http.StatusSeeOther)

	var title string
	var isPublished bool
	if err := db.QueryRow("SELECT title, is_published FROM posts WHERE id = ?", postID).Scan(&title, &isPublished); err != nil {
		t.Fatalf("reading post: %v", err)
	}
	if title != "New Title" {
		t.Errorf("title = %q, want New Title", title)
	}
	if !isPublished {
		t.Error("post should be published after update")
	}
}

func TestUpdateOwnershipGate(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")
	bob := createTestUser(t, db, "bob", "secret")
	postID := createTestPost(t, db, alice.ID, "Alice's Post", true)

	t.Run("non-author gets 403", func(t *testing.T) {
		rec := postAs(sm, h.Update, "/1/update", &bob, map[string]string{"id": itoa(postID)}, url.Values{
			"title": {"Hijacked"},
		})
		assertStatus(t, rec.Code, http.StatusForbidden)

		var title string
		_ = db.QueryRow("SELECT title FROM posts WHERE id = ?", postID).Scan(&title)
		if title != "Alice's Post" {
			t.Errorf("title changed to %q", title)
		}
	})

	t.Run("missing post gets 404 before ownership", func(t *testing.T) {
		rec := postAs(sm, h.Update, "/999/update", &bob, map[string]string{"id": "999"}, url.Values{
			"title": {"x"},
		})
		assertStatus(t, rec.Code, http.StatusNotFound)
	})
}

func TestDeletePost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")
	bob := createTestUser(t, db, "bob", "secret")
	postID := createTestPost(t, db, alice.ID, "Doomed Post", true)

	t.Run("non-author cannot delete", func(t *testing.T) {
		rec := postAs(sm, h.Delete, "/1/delete", &bob, map[string]string{"id": itoa(postID)}, url.Values{})
		assertStatus(t, rec.Code, http.StatusForbidden)
	})

	t.Run("author deletes", func(t *testing.T) {
		rec := postAs(sm, h.Delete, "/1/delete", &alice, map[string]string{"id": itoa(postID)}, url.Values{})
		assertStatus(t, rec.Code, http.StatusSeeOther)

		var count int
		_ = db.QueryRow("SELECT COUNT(*) FROM posts WHERE id = ?", postID).Scan(&count)
		if count != 0 {
			t.Errorf("post still exists after delete")
		}
	})
}

func TestEditFormShowsPost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewBlogHandler(db, testRenderer(t, sm), nil)

	alice := createTestUser(t, db, "alice", "secret")
	postID := createTestPost(t, db, alice.ID, "Editable", true)

	rec := getAs(sm, h.EditForm, "/1/update", &alice, map[string]string{"id": itoa(postID)})
	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Editable") {
		t.Error("post title missing from edit form")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
