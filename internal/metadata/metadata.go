// Package metadata fetches a web page and extracts the fields shown for a
// bookmark: title, description, Open Graph data, favicon and canonical URL.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
)

const (
	// DefaultTimeout bounds the whole fetch, connection through body.
	DefaultTimeout = 3 * time.Second

	// UserAgent identifies the fetcher to remote servers.
	UserAgent = "Mozilla/5.0 (compatible; BookmarkBot/1.0)"

	maxBodyBytes = 2 << 20
)

// Error codes raised by Extract.
const (
	CodeURLForbidden   = "URL_FORBIDDEN"
	CodeURLNotFound    = "URL_NOT_FOUND"
	CodeURLTimeout     = "URL_TIMEOUT"
	CodeURLFetchFailed = "URL_FETCH_FAILED"
)

// Metadata holds what was found on the page. Every field is nil when the
// page does not provide it.
type Metadata struct {
	Title         *string
	Description   *string
	OGTitle       *string
	OGDescription *string
	OGImageURL    *string
	FaviconURL    *string
	CanonicalURL  *string
}

type Options struct {
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Client defaults to a client with no timeout of its own; the
	// extractor's deadline is applied through the request context.
	Client *http.Client
}

// Extractor fetches pages over HTTP. It is safe for concurrent use.
type Extractor struct {
	client  *http.Client
	timeout time.Duration
}

func NewExtractor(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &Extractor{client: opts.Client, timeout: opts.Timeout}
}

// Extract GETs rawURL and parses the response as HTML. Failures are
// returned as *apperror.AppError with one of the Code* constants; a page
// that loads but lacks some field is not a failure.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fetchFailed(err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &apperror.AppError{
				Err:     fmt.Errorf("%w: metadata: fetching %s: %w", apperror.ErrTimeout, rawURL, err),
				Code:    CodeURLTimeout,
				Message: "URL fetch timed out",
			}
		}
		return nil, fetchFailed(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, apperror.Forbidden(CodeURLForbidden, "Access to the URL is forbidden")
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound(CodeURLNotFound, "URL not found")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fetchFailed(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	md, err := parse(io.LimitReader(resp.Body, maxBodyBytes), resp.Request.URL)
	if err != nil {
		if isTimeout(err) {
			return nil, apperror.New(apperror.ErrTimeout, CodeURLTimeout, "URL fetch timed out")
		}
		return nil, fetchFailed(err)
	}
	return md, nil
}

func fetchFailed(cause error) *apperror.AppError {
	return &apperror.AppError{
		Err:     fmt.Errorf("%w: metadata: %w", apperror.ErrUpstream, cause),
		Code:    CodeURLFetchFailed,
		Message: "Failed to fetch data from the URL",
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
