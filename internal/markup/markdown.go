// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package markup converts post bodies from Markdown to sanitized HTML.
package markup

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips dangerous elements from rendered post bodies.
// Post bodies are user-generated content, so UGCPolicy applies: safe
// formatting tags stay, <script>, event handlers and the like are removed.
var htmlSanitizer = bluemonday.UGCPolicy()

// Render converts Markdown source to sanitized HTML.
// A conversion failure falls back to the escaped plain text rather than
// dropping the body.
func Render(source string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source)) //nolint:gosec // escaped above
	}

	sanitized := htmlSanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(sanitized) //nolint:gosec // sanitized above
}
