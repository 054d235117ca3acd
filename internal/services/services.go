// package services wraps the external tools and HTTP endpoints the download pipeline depends on
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Resolver turns a source page URL into a title and a direct audio stream.
type Resolver interface {
	// Resolve returns the metadata and best audio stream for sourceURL.
	Resolve(ctx context.Context, sourceURL string) (*Metadata, error)
}

// Fetcher streams a remote resource into dst.
type Fetcher interface {
	// Fetch copies streamURL into dst, reporting progress after every chunk.
	// A non-nil error from progress aborts the transfer and is returned as is.
	Fetch(ctx context.Context, streamURL string, dst io.Writer, progress ProgressFunc) (int64, error)
}

// Converter encodes an audio input (file path or URL) into an MP3 file.
type Converter interface {
	Convert(ctx context.Context, input, output string) error
}

// ProgressFunc receives the bytes written so far and the expected total.
// total is -1 when the server does not announce a length.
type ProgressFunc func(written, total int64) error

// Metadata describes a resolved source.
type Metadata struct {
	Title     string
	Uploader  string
	Duration  float64 // seconds
	StreamURL string
	Ext       string
	Protocol  string
	Bitrate   int // kbps
}

// Streamable reports whether the stream can be fetched with a single HTTP GET.
// Segmented protocols (HLS, DASH) are handed to the converter directly.
func (m *Metadata) Streamable() bool {
	p := strings.ToLower(m.Protocol)
	return p == "" || p == "http" || p == "https"
}

// CommandRunner executes an external binary and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs name with [exec.CommandContext]. On failure the last line of stderr is folded into the error.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
