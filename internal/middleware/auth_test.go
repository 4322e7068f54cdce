// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/quill/internal/store"
)

func TestGetUser(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		user := GetUser(req)
		if user != nil {
			t.Errorf("GetUser() = %v, want nil", user)
		}
	})

	t.Run("user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		testUser := store.User{
			ID:       123,
			Username: "demo",
		}
		ctx := context.WithValue(req.Context(), ContextKeyUser, testUser)
		req = req.WithContext(ctx)

		user := GetUser(req)
		if user == nil {
			t.Fatal("GetUser() = nil, want user")
		}
		if user.ID != 123 {
			t.Errorf("GetUser().ID = %d, want 123", user.ID)
		}
		if user.Username != "demo" {
			t.Errorf("GetUser().Username = %q, want %q", user.Username, "demo")
		}
	})
}

func TestGetUserID(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		id := GetUserID(req)
		if id != 0 {
			t.Errorf("GetUserID() = %d, want 0", id)
		}
	})

	t.Run("user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		testUser := store.User{ID: 456}
		ctx := context.WithValue(req.Context(), ContextKeyUser, testUser)
		req = req.WithContext(ctx)

		id := GetUserID(req)
		if id != 456 {
			t.Errorf("GetUserID() = %d, want 456", id)
		}
	})
}

func TestGetUserIDPtr(t *testing.T) {
	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if ptr := GetUserIDPtr(req); ptr != nil {
			t.Errorf("GetUserIDPtr() = %v, want nil", ptr)
		}
	})

	t.Run("user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		testUser := store.User{ID: 789}
		ctx := context.WithValue(req.Context(), ContextKeyUser, testUser)
		req = req.WithContext(ctx)

		ptr := GetUserIDPtr(req)
		if ptr == nil {
			t.Fatal("GetUserIDPtr() = nil, want pointer")
		}
		if *ptr != 789 {
			t.Errorf("*GetUserIDPtr() = %d, want 789", *ptr)
		}
	})
}

func TestRequestPath(t *testing.T) {
	var gotPath string
	handler := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = GetRequestPath(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/42/update", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotPath != "/42/update" {
		t.Errorf("GetRequestPath() = %q, want %q", gotPath, "/42/update")
	}
}

func TestGetRequestPathEmpty(t *testing.T) {
	if path := GetRequestPath(context.Background()); path != "" {
		t.Errorf("GetRequestPath() = %q, want empty", path)
	}
}
