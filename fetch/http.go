package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"inliner/config"
)

// maxResponseSize limits amount of data read from a single response.
const maxResponseSize = 16 << 20

// HTTP retrieves stylesheets from web servers.
type HTTP struct {
	client        *http.Client
	userAgent     string
	authorization config.SecretString
	log           *zap.Logger
}

// NewHTTP creates fetcher from configuration. Nil configuration means no
// timeout and no additional headers.
func NewHTTP(cfg *config.FetchConfig, log *zap.Logger) *HTTP {
	if log == nil {
		log = zap.NewNop()
	}
	h := &HTTP{
		client: cleanhttp.DefaultClient(),
		log:    log.Named("fetch"),
	}
	if cfg != nil {
		h.client.Timeout = cfg.Timeout
		h.userAgent = cfg.UserAgent
		h.authorization = cfg.Authorization
	}
	return h
}

// Fetch implements Fetcher.
func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	data, contentType, err := h.Download(ctx, location, "text/css,*/*;q=0.1")
	if err != nil {
		return nil, err
	}
	return decode(data, contentType)
}

// Download returns raw response body and its content type. Only successful
// responses are accepted.
func (h *HTTP) Download(ctx context.Context, location, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", fmt.Errorf("unable to create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if h.authorization != "" {
		req.Header.Set("Authorization", h.authorization.Reveal())
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected response status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("unable to read response: %w", err)
	}
	if len(data) > maxResponseSize {
		return nil, "", fmt.Errorf("response is larger than %d bytes", maxResponseSize)
	}

	contentType := resp.Header.Get("Content-Type")
	h.log.Debug("Downloaded",
		zap.String("url", location), zap.String("content-type", contentType), zap.Int("size", len(data)))
	return data, contentType, nil
}
