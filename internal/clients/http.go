// Package clients calls the downstream account and shipment services. Both return
// opaque text which is handed through unchanged.
package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
)

// maxBodyBytes bounds how much of a downstream response is read.
const maxBodyBytes = 1 << 20

type textGetter struct {
	baseURL string
	http    *http.Client
}

func newTextGetter(baseURL string, timeout time.Duration) textGetter {
	return textGetter{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// get issues GET baseURL+path and returns the body as text. Every failure, including
// non-2xx statuses, is reported as apperr.ErrUpstreamUnavailable.
func (g textGetter) get(ctx context.Context, path string) (string, error) {
	url := g.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request %s: %w", apperr.ErrUpstreamUnavailable, url, err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %w", apperr.ErrUpstreamUnavailable, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", apperr.ErrUpstreamUnavailable, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: GET %s returned %d", apperr.ErrUpstreamUnavailable, url, resp.StatusCode)
	}
	return string(body), nil
}
