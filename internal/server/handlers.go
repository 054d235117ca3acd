package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

const maxBodyBytes = 64 << 10

// fail writes err with its mapped status. Unexpected errors are logged and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: s.manager.Uptime().Seconds(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	d := s.config.Downloads
	writeJSON(w, http.StatusOK, models.ConfigResponse{
		MaxConcurrent: d.MaxConcurrent,
		OutputDir:     d.OutputDir,
		QueuePolicy:   d.QueuePolicy,
		QueueSize:     d.QueueSize,
		VerifySSL:     d.VerifySSL,
		AudioBitrate:  d.AudioBitrate,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err))
		return
	}

	id, err := s.manager.Submit(r.Context(), req.URL, req.CustomName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DownloadResponse{DownloadID: id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs := s.manager.ListJobs()
	out := make(map[string]models.JobResponse, len(jobs))
	for _, job := range jobs {
		out[job.ID] = models.NewJobResponse(job)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.GetStatus(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewJobResponse(job))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.Cancel(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewJobResponse(job))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.manager.Files()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if files == nil {
		files = []models.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manager.Stats()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
}
