// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain constants and types shared across the
// application, such as audit event levels and categories.
package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth   = "auth"
	EventCategoryPost   = "post"
	EventCategoryUser   = "user"
	EventCategorySystem = "system"
)

// Event represents an audit log entry.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"user_id,omitempty"`
	IPAddress string        `json:"ip_address,omitempty"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// ValidEventLevel returns true if the level is a known event level.
func ValidEventLevel(level string) bool {
	switch level {
	case EventLevelInfo, EventLevelWarning, EventLevelError:
		return true
	}
	return false
}
