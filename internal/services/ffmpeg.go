package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/ytmp3/internal/shared"
)

// FFmpegConverter implements [Converter] with ffmpeg and libmp3lame.
type FFmpegConverter struct {
	Path       string
	Bitrate    string
	SampleRate int
	Timeout    time.Duration
	Run        CommandRunner
}

// NewFFmpegConverter builds a converter from the tools and downloads config sections.
func NewFFmpegConverter(config *shared.Config) *FFmpegConverter {
	return &FFmpegConverter{
		Path:       config.Tools.FFmpegPath,
		Bitrate:    config.Downloads.AudioBitrate,
		SampleRate: config.Downloads.SampleRate,
		Timeout:    config.Tools.ConvertTimeout,
		Run:        ExecRunner,
	}
}

func (c *FFmpegConverter) args(input, output string) []string {
	args := []string{"-y", "-loglevel", "error", "-nostdin", "-i", input, "-vn", "-acodec", "libmp3lame"}
	if c.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.SampleRate))
	}
	if c.Bitrate != "" {
		args = append(args, "-b:a", c.Bitrate)
	}
	return append(args, output)
}

// Convert encodes input into an MP3 at output, overwriting it.
func (c *FFmpegConverter) Convert(ctx context.Context, input, output string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	run := c.Run
	if run == nil {
		run = ExecRunner
	}

	if _, err := run(ctx, c.Path, c.args(input, output)...); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrConversion, err)
	}
	return nil
}
