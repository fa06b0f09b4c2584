// Package scraper fetches the workshop listing and item detail pages and turns
// their markup into domain values.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"workshop-announcer/internal/domain/entity"
	"workshop-announcer/internal/resilience/circuitbreaker"
	"workshop-announcer/internal/resilience/retry"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
)

const (
	maxBodySize = 10 * 1024 * 1024 // 10MB

	defaultUserAgent = "WorkshopAnnouncer/1.0"
)

// pageFetcher downloads and parses HTML pages through a circuit breaker and
// a bounded retry loop. It is shared by the catalog and detail scrapers.
type pageFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	userAgent      string
}

func newPageFetcher(client *http.Client, cb *circuitbreaker.CircuitBreaker) *pageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if cb == nil {
		cb = circuitbreaker.New(circuitbreaker.WorkshopScraperConfig())
	}
	return &pageFetcher{
		client:         client,
		circuitBreaker: cb,
		retryConfig:    retry.WorkshopScraperConfig(),
		userAgent:      defaultUserAgent,
	}
}

// fetch returns the parsed document or a *entity.FetchError.
func (p *pageFetcher) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	retryErr := retry.WithBackoff(ctx, p.retryConfig, func() error {
		d, err := circuitbreaker.Do(p.circuitBreaker, func() (*goquery.Document, error) {
			return p.doFetch(ctx, pageURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				slog.Warn("workshop scraper circuit breaker open, request rejected",
					slog.String("url", pageURL),
					slog.String("state", p.circuitBreaker.State().String()))
			}
			return err
		}
		doc = d
		return nil
	})
	if retryErr != nil {
		fetchErr := &entity.FetchError{URL: pageURL, Err: retryErr}
		var httpErr *retry.HTTPError
		if errors.As(retryErr, &httpErr) {
			fetchErr.StatusCode = httpErr.StatusCode
		}
		return nil, fetchErr
	}

	return doc, nil
}

// doFetch performs a single GET without retry or circuit breaker.
func (p *pageFetcher) doFetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			httpErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		}
		return nil, httpErr
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	return doc, nil
}

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. It returns zero when the header is absent, malformed or
// already in the past.
func parseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.ParseFloat(header, 64); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds * float64(time.Second))
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
