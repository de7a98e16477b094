package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	apperrors "go-image-assessor/internal/errors"
	"go-image-assessor/internal/images"
)

// ImageFetcher resolves a source string into a decoded image
type ImageFetcher interface {
	FetchImage(ctx context.Context, source string) (*images.Image, error)
}

const (
	maxAttempts = 3
	// Upper bound on a downloaded image body
	defaultMaxImageBytes = 64 << 20
)

// HTTPImageFetcher implements ImageFetcher over plain HTTP(S) with retries
type HTTPImageFetcher struct {
	client   *http.Client
	mode     images.Mode
	backoff  time.Duration
	maxBytes int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher decoding with mode.
// timeout bounds a single attempt; zero keeps the 30s default.
func NewHTTPImageFetcher(mode images.Mode, timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Connection pooling sized for a reference/measured pair per request
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		mode:     mode,
		backoff:  time.Second,
		maxBytes: defaultMaxImageBytes,
	}
}

// WithBackoff sets the base delay between retries; attempt n waits n*d
func (h *HTTPImageFetcher) WithBackoff(d time.Duration) *HTTPImageFetcher {
	h.backoff = d
	return h
}

// WithMaxBytes limits how much of a response body is decoded
func (h *HTTPImageFetcher) WithMaxBytes(n int64) *HTTPImageFetcher {
	h.maxBytes = n
	return h
}

// statusError keeps the response code so callers can map 404 to not-found
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("server error: status code %d", e.code)
	}
	return fmt.Sprintf("client error: status code %d", e.code)
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, source string) (*images.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/tiff, image/bmp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Image-Assessor/1.0")

	body, err := h.download(ctx, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := h.readBody(body)
	if err != nil {
		return nil, err
	}

	img, err := images.Decode(bytes.NewReader(data), h.mode)
	if err != nil {
		return nil, err
	}
	img.Path = source
	img.Name = path.Base(req.URL.Path)
	return img, nil
}

// readBody reads one byte past the limit so an oversized image is reported
// as such instead of failing to decode a truncated body
func (h *HTTPImageFetcher) readBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, h.maxBytes+1))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read image body", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("image is too large: exceeds %d bytes", h.maxBytes), nil)
	}
	return data, nil
}

// download retries transport errors and 5xx responses; 4xx stops immediately
func (h *HTTPImageFetcher) download(ctx context.Context, req *http.Request) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := h.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		if err != nil {
			lastErr = err
		} else {
			resp.Body.Close()
			lastErr = &statusError{code: resp.StatusCode}
			if resp.StatusCode < 500 {
				break
			}
		}

		if ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	return nil, fetchError(ctx, lastErr)
}

func fetchError(ctx context.Context, lastErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("image fetch timed out", lastErr)
	}

	msg := fmt.Sprintf("failed to fetch image after %d attempts", maxAttempts)
	var se *statusError
	if errors.As(lastErr, &se) && se.code == http.StatusNotFound {
		return apperrors.NewNotFoundError(msg, lastErr)
	}
	var urlErr *url.Error
	if errors.As(lastErr, &urlErr) && urlErr.Timeout() {
		return apperrors.NewTimeoutError(msg, lastErr)
	}
	return apperrors.NewNetworkError(msg, lastErr)
}
