package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/c360studio/songbook/source/weburl"
)

// Fetch defaults.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultUserAgent    = "songbook/1.0 (+https://github.com/c360studio/songbook)"
	DefaultMaxSize      = 2 << 20
	maxRedirects        = 5
)

// ErrTooLarge is returned when a response exceeds the size limit.
var ErrTooLarge = errors.New("content too large")

// FetchOptions configures a Fetcher. Zero values take the defaults.
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
	MaxSize   int64

	// Encoding is used when the response does not declare a charset.
	Encoding string
}

// Fetcher downloads songs over HTTPS. Hosts that resolve to private or
// loopback addresses are refused, also on redirects and after DNS
// resolution.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxSize   int64
	encoding  string
	validate  func(string) error
}

// NewFetcher creates a fetcher.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Resolved addresses are checked again so that a public name cannot
	// point at a private address.
	safeDialContext := func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed: %w", err)
		}
		for _, ipAddr := range ips {
			if weburl.IsPrivateIP(ipAddr.IP) {
				return nil, fmt.Errorf("%w: %s resolves to %s", weburl.ErrPrivateAddress, host, ipAddr.IP)
			}
		}
		var lastErr error
		for _, ipAddr := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ipAddr.IP.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("connect to %s: %w", host, lastErr)
	}

	f := &Fetcher{
		userAgent: opts.UserAgent,
		maxSize:   opts.MaxSize,
		encoding:  opts.Encoding,
		validate:  weburl.ValidateURL,
	}
	f.client = &http.Client{
		Transport: &http.Transport{
			DialContext:           safeDialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: opts.Timeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		Timeout:       opts.Timeout,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("too many redirects (max %d)", maxRedirects)
	}
	if err := f.validate(req.URL.String()); err != nil {
		return fmt.Errorf("redirect blocked: %w", err)
	}
	return nil
}

// Fetch downloads rawURL and decodes it using the charset the server
// declares, falling back to the configured encoding.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Input, error) {
	if err := f.validate(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,text/html;q=0.9,application/json;q=0.8,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d: %s", rawURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, rawURL, f.maxSize)
	}

	encoding := charsetOf(resp.Header.Get("Content-Type"))
	if encoding == "" {
		encoding = f.encoding
	}
	text, err := Decode(body, encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	return &Input{Name: rawURL, Text: text}, nil
}
