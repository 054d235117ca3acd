// Package services implements the three stages of the download pipeline and a client for the HTTP API.
//
// # Pipeline
//
// [YTDLPResolver] runs yt-dlp in JSON mode and picks the best audio-only format
// (container preference, then protocol, then bitrate). [HTTPFetcher] streams the
// chosen format to disk and reports progress per chunk. [FFmpegConverter] encodes
// the result to MP3 with libmp3lame.
//
// External binaries are executed through a [CommandRunner] so tests can replace them.
//
// # Client
//
// [APIService] talks to a running server. It keeps raw Get/Post helpers and adds
// typed calls for each endpoint (Submit, Download, Downloads, Cancel, Files, Stats, Health).
//
// # Error Handling
//
// Services wrap sentinel errors from the shared package:
//   - [shared.ErrMetadata] : yt-dlp failed or returned no usable audio
//   - [shared.ErrFetch] : the stream request failed or returned a non-200 status
//   - [shared.ErrConversion] : ffmpeg exited with an error
//   - [shared.ErrAPIRequest] : the API returned an unexpected status
package services
