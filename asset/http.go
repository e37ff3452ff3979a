package asset

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBytes caps a fetched image, matching the upload limit.
const DefaultMaxBytes = 5 << 20

// HTTPLoader fetches images from absolute URLs.
type HTTPLoader struct {
	http     *http.Client
	maxBytes int64
}

func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLoader{
		http:     &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
	}
}

// Load GETs ref and decodes the body. Non-200 responses are errors.
func (l *HTTPLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("asset: %s returned %d", ref, resp.StatusCode)
	}
	return Decode(io.LimitReader(resp.Body, l.maxBytes))
}
