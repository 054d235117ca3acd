package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/ytmp3/internal/shared"
)

const fetchBufferSize = 64 * 1024

// HTTPFetcher implements [Fetcher] with a plain HTTP GET.
type HTTPFetcher struct {
	httpClient *http.Client
	headers    http.Header
}

// NewHTTPFetcher creates a fetcher sending headers on every request.
// When verifySSL is false the TLS certificate chain is not checked.
func NewHTTPFetcher(verifySSL bool, headers http.Header) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return NewHTTPFetcherWithClient(&http.Client{Transport: transport}, headers)
}

// NewHTTPFetcherWithClient creates a fetcher around an existing client.
func NewHTTPFetcherWithClient(client *http.Client, headers http.Header) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{httpClient: client, headers: headers.Clone()}
}

// Fetch streams streamURL into dst.
func (f *HTTPFetcher) Fetch(ctx context.Context, streamURL string, dst io.Writer, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %w", shared.ErrFetch, err)
	}
	for key, values := range f.headers {
		req.Header[key] = append([]string(nil), values...)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", shared.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status %d", shared.ErrFetch, resp.StatusCode)
	}

	pw := &progressWriter{w: dst, total: resp.ContentLength, fn: progress}
	n, err := io.CopyBuffer(pw, struct{ io.Reader }{resp.Body}, make([]byte, fetchBufferSize))
	if err != nil {
		if pw.abort != nil {
			return n, pw.abort
		}
		return n, fmt.Errorf("%w: %w", shared.ErrFetch, err)
	}
	if pw.total > 0 && n < pw.total {
		return n, fmt.Errorf("%w: short body (%d of %d bytes)", shared.ErrFetch, n, pw.total)
	}
	return n, nil
}

// progressWriter forwards writes and reports the running total.
type progressWriter struct {
	w       io.Writer
	fn      ProgressFunc
	written int64
	total   int64
	abort   error
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if err != nil {
		return n, err
	}
	if p.fn != nil {
		if err := p.fn(p.written, p.total); err != nil {
			p.abort = err
			return n, err
		}
	}
	return n, nil
}
