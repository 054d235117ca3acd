// package formatter exports download jobs to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, name)
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	}
	return string(f)
}

// Export is a snapshot of the job table and the output directory.
type Export struct {
	Jobs       []models.Job  `json:"jobs"`
	Files      []models.File `json:"files"`
	ExportedAt time.Time     `json:"exported_at"`
}

// ExportToCSV converts jobs to CSV with columns: ID, Status, Progress, Title, Source URL, Output, Error, Created, Finished
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Status", "Progress", "Title", "Source URL", "Output", "Error", "Created", "Finished"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range export.Jobs {
		finished := ""
		if job.FinishedAt != nil {
			finished = job.FinishedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			job.ID,
			job.Status.String(),
			fmt.Sprintf("%.1f", job.Progress),
			job.Title,
			job.SourceURL,
			job.OutputPath,
			job.Error,
			job.CreatedAt.UTC().Format(time.RFC3339),
			finished,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders jobs grouped by status followed by the file listing.
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Downloads\n\n")
	buf.WriteString(fmt.Sprintf("**Exported**: %s\n", export.ExportedAt.UTC().Format(time.RFC1123)))
	buf.WriteString(fmt.Sprintf("**Jobs**: %d\n", len(export.Jobs)))
	buf.WriteString(fmt.Sprintf("**Files**: %d (%s)\n\n", len(export.Files), shared.FormatBytes(diskUsage(export.Files))))

	for _, status := range models.Statuses {
		jobs := byStatus(export.Jobs, status)
		if len(jobs) == 0 {
			continue
		}

		buf.WriteString(fmt.Sprintf("## %s\n\n", titleCase(status.String())))
		for i, job := range jobs {
			buf.WriteString(fmt.Sprintf("%d. %s [%.0f%%] <%s>", i+1, displayName(job), job.Progress, job.SourceURL))
			if job.Error != "" {
				buf.WriteString(fmt.Sprintf(" - _%s_", job.Error))
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	if len(export.Files) > 0 {
		buf.WriteString("## Files\n\n")
		for _, f := range export.Files {
			buf.WriteString(fmt.Sprintf("- `%s` (%s)\n", f.Name, shared.FormatBytes(f.Size)))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts jobs to plain text format
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Downloads: %d\n", len(export.Jobs)))
	buf.WriteString(fmt.Sprintf("Files: %d\n\n", len(export.Files)))

	for i, job := range export.Jobs {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s (%.0f%%)\n", i+1, job.Status, displayName(job), job.Progress))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the whole export as indented JSON.
func ExportToJSON(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

// Render dispatches to the exporter for f.
func Render(f Format, export *Export) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

// WriteExport renders export as f and writes it to path.
//
// Defaults to downloads.{ext} in the working directory. Parent directories are created.
func WriteExport(f Format, export *Export, path string) (string, error) {
	if path == "" {
		path = "downloads." + f.Ext()
	}

	data, err := Render(f, export)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", f, err)
	}

	return path, nil
}

func displayName(job models.Job) string {
	switch {
	case job.CustomName != "":
		return job.CustomName
	case job.Title != "":
		return job.Title
	}
	return job.SourceURL
}

func byStatus(jobs []models.Job, status models.Status) []models.Job {
	var out []models.Job
	for _, job := range jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	return out
}

func diskUsage(files []models.File) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
