package models

// DownloadRequest is the body of POST /download.
type DownloadRequest struct {
	URL        string `json:"url"`
	CustomName string `json:"custom_name,omitempty"`
}

// DownloadResponse is returned once a job has been accepted.
type DownloadResponse struct {
	DownloadID string `json:"download_id"`
}

// JobResponse is a [Job] as served over HTTP. DownloadID mirrors ID for clients that key on it.
type JobResponse struct {
	DownloadID string `json:"download_id"`
	Job
}

// NewJobResponse wraps job for the wire.
func NewJobResponse(job Job) JobResponse {
	return JobResponse{DownloadID: job.ID, Job: job}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ConfigResponse is the public subset of the service configuration.
type ConfigResponse struct {
	MaxConcurrent int    `json:"max_concurrent"`
	OutputDir     string `json:"output_dir"`
	QueuePolicy   string `json:"queue_policy"`
	QueueSize     int    `json:"queue_size"`
	VerifySSL     bool   `json:"verify_ssl"`
	AudioBitrate  string `json:"audio_bitrate"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
