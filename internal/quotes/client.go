// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package quotes fetches the quote of the day from an external API.
// The API is decorative: every failure mode degrades to "no quotes"
// rather than surfacing an error to the page.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout is the HTTP timeout for quote API requests.
const DefaultTimeout = 10 * time.Second

// Quote is a single quote of the day.
type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// apiResponse mirrors the quotes.rest response envelope. An "error"
// member means the API refused the request (usually rate limiting).
type apiResponse struct {
	Error    json.RawMessage `json:"error"`
	Contents struct {
		Quotes []Quote `json:"quotes"`
	} `json:"contents"`
}

// Client fetches quotes from the external API.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a quote API client for the given URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Fetch requests the quote of the day.
// Returns nil (not an error) when the API reports an error member,
// matching the treat-as-empty behavior the callers rely on.
// Transport and decode failures are returned so the caller can decide
// whether to log them.
func (c *Client) Fetch(ctx context.Context) ([]Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching quotes: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding quote response: %w", err)
	}

	if len(body.Error) > 0 {
		// API-level error (rate limit etc.): treat as no quotes
		return nil, nil
	}

	return body.Contents.Quotes, nil
}
