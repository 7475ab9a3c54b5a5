package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pders01/feedagg/internal/config"
)

const acceptHeader = "application/rss+xml, application/atom+xml, text/xml;q=0.9, */*;q=0.8"

// Validators are the cache validators remembered from a previous fetch.
type Validators struct {
	ETag         string
	LastModified string
}

// Response is the outcome of one GET. Body is nil on 304.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	ignoreCache  bool
}

func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := cfg.Feed.HTTPTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent:    cfg.Feed.UserAgent,
		maxBodyBytes: cfg.Feed.MaxBodyBytes,
	}
}

// SetIgnoreCache makes subsequent fetches skip conditional request headers.
func (f *Fetcher) SetIgnoreCache(ignore bool) {
	f.ignoreCache = ignore
}

// Fetch issues a GET for url. Every HTTP status is reported through the
// Response; an error means the request never produced a readable response.
func (f *Fetcher) Fetch(ctx context.Context, url string, v Validators) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", acceptHeader)

	if !f.ignoreCache {
		if v.ETag != "" {
			req.Header.Set("If-None-Match", v.ETag)
		}
		if v.LastModified != "" {
			req.Header.Set("If-Modified-Since", v.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBodyBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if f.maxBodyBytes > 0 && int64(len(data)) > f.maxBodyBytes {
		return nil, fmt.Errorf("reading %s: body exceeds %d bytes", url, f.maxBodyBytes)
	}
	out.Body = data
	return out, nil
}
