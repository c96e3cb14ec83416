// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package resolver implements the client for the external candidate-user
// resolver, the identity service that nominates feed candidates.
//
// The resolver is best-effort by contract: every call carries a bounded
// timeout and runs behind a circuit breaker. Callers treat any failure as
// "no candidates" rather than failing the feed read.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/colligo-dev/colligo/internal/config"
	"github.com/colligo-dev/colligo/internal/logging"
	"github.com/colligo-dev/colligo/internal/metrics"
	"github.com/colligo-dev/colligo/internal/models"
)

// ErrUnconfigured is returned when no resolver URL is set.
var ErrUnconfigured = errors.New("resolver: no URL configured")

// Client calls the candidate resolver over HTTP with circuit breaking.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]models.CandidateAuthor]
}

// New creates a resolver client from configuration.
func New(cfg config.ResolverConfig) *Client {
	cb := gobreaker.NewCircuitBreaker[[]models.CandidateAuthor](gobreaker.Settings{
		Name:        "candidate-resolver",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("resolver circuit breaker state change")
		},
	})

	return &Client{
		baseURL: cfg.URL,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
		cb:      cb,
	}
}

// Following returns up to limit users the viewer follows.
func (c *Client) Following(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error) {
	path := "/api/v1/users/" + url.PathEscape(viewerID) + "/following"
	return c.fetch(ctx, "following", path, limit, "")
}

// RandomPublic returns up to limit random public users for feed discovery,
// excluding the viewer.
func (c *Client) RandomPublic(ctx context.Context, viewerID string, limit int) ([]models.CandidateAuthor, error) {
	return c.fetch(ctx, "random", "/api/v1/users/random", limit, viewerID)
}

func (c *Client) fetch(ctx context.Context, pool, path string, limit int, exclude string) ([]models.CandidateAuthor, error) {
	if c.baseURL == "" {
		return nil, ErrUnconfigured
	}

	start := time.Now()
	candidates, err := c.cb.Execute(func() ([]models.CandidateAuthor, error) {
		return c.doFetch(ctx, path, limit, exclude)
	})

	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "open"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordResolverRequest(pool, outcome, time.Since(start))

	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (c *Client) doFetch(ctx context.Context, path string, limit int, exclude string) ([]models.CandidateAuthor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if exclude != "" {
		query.Set("exclude", exclude)
	}
	reqURL := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("resolver returned status %d: %s", resp.StatusCode, string(body))
	}

	var candidates []models.CandidateAuthor
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("decode resolver response: %w", err)
	}

	// Candidates without an ID cannot key post lookups; drop them here so
	// downstream code never sees them.
	filtered := candidates[:0]
	for _, cand := range candidates {
		if cand.ID != "" {
			filtered = append(filtered, cand)
		}
	}
	return filtered, nil
}
