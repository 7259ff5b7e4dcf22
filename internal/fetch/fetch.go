// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mesozoic/mesozoic/pkg/load"
)

const (
	// CacheDirEnv overrides the default cache directory.
	CacheDirEnv = "MESOZOIC_CACHE_DIR"

	// DefaultMemoryEntries is the default capacity of the in-memory cache.
	DefaultMemoryEntries = 512

	// maxBodyBytes bounds the size of a single remote module (64 MB).
	maxBodyBytes = 64 << 20
)

type (
	// Client fetches remote modules and caches successful responses. It
	// implements load.Fetcher and is safe for concurrent use.
	Client struct {
		httpClient    *http.Client
		userAgent     string
		cacheDir      string
		memoryEntries int
		maxBody       int64
		logger        *log.Logger

		memory *lru.Cache[string, *load.Fetched]
		disk   *diskStore
		group  singleflight.Group
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

var _ load.Fetcher = (*Client)(nil)

// ErrBodyTooLarge is returned when a response body exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithCacheDir enables the disk cache below dir. An empty dir disables it.
func WithCacheDir(dir string) Option {
	return func(cl *Client) {
		cl.cacheDir = dir
	}
}

// WithMemoryEntries sets the in-memory cache capacity. Zero disables it.
func WithMemoryEntries(n int) Option {
	return func(cl *Client) {
		cl.memoryEntries = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// New creates a Client. Without options it uses http.DefaultClient, the
// load.UserAgent, a memory cache of DefaultMemoryEntries and no disk cache.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient:    http.DefaultClient,
		userAgent:     load.UserAgent,
		memoryEntries: DefaultMemoryEntries,
		maxBody:       maxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.memoryEntries > 0 {
		memory, err := lru.New[string, *load.Fetched](c.memoryEntries)
		if err != nil {
			return nil, fmt.Errorf("creating memory cache: %w", err)
		}
		c.memory = memory
	}
	if c.cacheDir != "" {
		c.disk = &diskStore{dir: c.cacheDir}
	}
	return c, nil
}

// DefaultCacheDir returns the default disk cache directory.
// It checks MESOZOIC_CACHE_DIR first, then falls back to the user cache directory.
func DefaultCacheDir() (string, error) {
	return DefaultCacheDirWith(os.Getenv)
}

// DefaultCacheDirWith is DefaultCacheDir with an explicit getenv function.
func DefaultCacheDirWith(getenv func(string) string) (string, error) {
	if dir := getenv(CacheDirEnv); dir != "" {
		return dir, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(base, "mesozoic", "remote"), nil
}

// Fetch returns the response for rawURL. With load.PolicyDefault a cached
// response is returned when present; load.PolicyReload always goes to the
// network. Only 200 responses are cached. The returned value is shared and
// must not be modified.
func (c *Client) Fetch(ctx context.Context, rawURL string, policy load.Policy) (*load.Fetched, error) {
	if policy != load.PolicyReload {
		if f, ok := c.cached(rawURL); ok {
			return f, nil
		}
	}

	v, err, shared := c.group.Do(rawURL, func() (any, error) {
		return c.download(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("fetch shared", "url", rawURL)
	}
	return v.(*load.Fetched), nil
}

func (c *Client) cached(rawURL string) (*load.Fetched, bool) {
	if c.memory != nil {
		if f, ok := c.memory.Get(rawURL); ok {
			return f, true
		}
	}
	if c.disk == nil {
		return nil, false
	}

	f, err := c.disk.get(rawURL)
	if err != nil {
		c.logger.Warn("ignoring cache entry", "url", rawURL, "err", err)
		return nil, false
	}
	if f == nil {
		return nil, false
	}
	if c.memory != nil {
		c.memory.Add(rawURL, f)
	}
	return f, true
}

func (c *Client) download(ctx context.Context, rawURL string) (*load.Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("download", "url", rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	f := &load.Fetched{
		URL:     rawURL,
		Status:  resp.StatusCode,
		Headers: lowerHeaders(resp.Header),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		f.URL = resp.Request.URL.String()
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return f, nil
	}

	f.Body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(f.Body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, rawURL, c.maxBody)
	}

	if c.memory != nil {
		c.memory.Add(rawURL, f)
	}
	if c.disk != nil {
		if err := c.disk.put(rawURL, f); err != nil {
			c.logger.Warn("caching response failed", "url", rawURL, "err", err)
		}
	}
	return f, nil
}

// Purge drops every in-memory entry. Disk entries are kept.
func (c *Client) Purge() {
	if c.memory != nil {
		c.memory.Purge()
	}
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}
