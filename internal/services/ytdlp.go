package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/ytmp3/internal/shared"
)

type ytdlpFormat struct {
	FormatID string  `json:"format_id"`
	ACodec   string  `json:"acodec"`
	VCodec   string  `json:"vcodec"`
	Ext      string  `json:"ext"`
	Protocol string  `json:"protocol"`
	URL      string  `json:"url"`
	ABR      float64 `json:"abr"`
	TBR      float64 `json:"tbr"`
}

type ytdlpInfo struct {
	Title    string        `json:"title"`
	Uploader string        `json:"uploader"`
	Duration float64       `json:"duration"`
	Formats  []ytdlpFormat `json:"formats"`
}

// YTDLPResolver implements [Resolver] by shelling out to yt-dlp.
type YTDLPResolver struct {
	Path      string
	Timeout   time.Duration
	VerifySSL bool
	Headers   http.Header
	Run       CommandRunner
}

// NewYTDLPResolver builds a resolver from the tools and downloads config sections.
func NewYTDLPResolver(config *shared.Config, headers http.Header) *YTDLPResolver {
	return &YTDLPResolver{
		Path:      config.Tools.YTDLPPath,
		Timeout:   config.Tools.ResolveTimeout,
		VerifySSL: config.Downloads.VerifySSL,
		Headers:   headers,
		Run:       ExecRunner,
	}
}

func (y *YTDLPResolver) args(sourceURL string) []string {
	args := []string{"-J", "--no-warnings", "--skip-download"}
	if !y.VerifySSL {
		args = append(args, "--no-check-certificates")
	}
	args = append(args, shared.HeaderArgs(y.Headers)...)
	return append(args, sourceURL)
}

// Resolve runs yt-dlp -J for sourceURL and returns the best audio stream.
func (y *YTDLPResolver) Resolve(ctx context.Context, sourceURL string) (*Metadata, error) {
	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	run := y.Run
	if run == nil {
		run = ExecRunner
	}

	out, err := run(ctx, y.Path, y.args(sourceURL)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrMetadata, err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yt-dlp output: %w", shared.ErrMetadata, err)
	}

	best, ok := pickFormat(info.Formats)
	if !ok {
		return nil, fmt.Errorf("%w: no usable audio formats", shared.ErrMetadata)
	}

	return &Metadata{
		Title:     info.Title,
		Uploader:  info.Uploader,
		Duration:  info.Duration,
		StreamURL: best.URL,
		Ext:       best.Ext,
		Protocol:  best.Protocol,
		Bitrate:   int(best.ABR),
	}, nil
}

// pickFormat prefers audio-only formats and falls back to any format carrying audio.
func pickFormat(formats []ytdlpFormat) (ytdlpFormat, bool) {
	var audioOnly, withAudio []ytdlpFormat
	for _, f := range formats {
		if f.URL == "" || f.ACodec == "none" {
			continue
		}
		if f.VCodec == "none" || f.VCodec == "" {
			audioOnly = append(audioOnly, f)
		} else {
			withAudio = append(withAudio, f)
		}
	}

	candidates := audioOnly
	if len(candidates) == 0 {
		candidates = withAudio
	}
	if len(candidates) == 0 {
		return ytdlpFormat{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := scoreFormat(candidates[i]), scoreFormat(candidates[j])
		if si == sj {
			return candidates[i].ABR > candidates[j].ABR
		}
		return si > sj
	})
	return candidates[0], true
}

// scoreFormat ranks a format by container, then transport, then bitrate.
func scoreFormat(f ytdlpFormat) int {
	score := 0
	switch strings.ToLower(f.Ext) {
	case "m4a":
		score += 100
	case "webm":
		score += 90
	case "ogg", "opus":
		score += 85
	case "mp4":
		score += 70
	default:
		score += 60
	}

	p := strings.ToLower(f.Protocol)
	switch {
	case strings.HasPrefix(p, "https"):
		score += 30
	case strings.HasPrefix(p, "http"):
		score += 25
	case strings.Contains(p, "m3u8"), strings.Contains(p, "hls"):
		score += 20
	case strings.Contains(p, "dash"):
		score += 15
	}

	if f.ABR > 0 {
		score += int(f.ABR)
	} else if f.TBR > 0 {
		score += int(f.TBR / 2)
	}
	return score
}
