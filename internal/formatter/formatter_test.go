package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
	th "github.com/desertthunder/ytmp3/internal/testing"
)

func sampleExport() *Export {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := created.Add(2 * time.Minute)

	done := models.NewJob("job1", "https://www.youtube.com/watch?v=aaa", "", created)
	done.Status = models.StatusCompleted
	done.Progress = 100
	done.Title = "Song One"
	done.OutputPath = "downloads/Song One.mp3"
	done.FinishedAt = &finished

	failed := models.NewJob("job2", "https://www.youtube.com/watch?v=bbb", "Custom, Name", created)
	failed.Status = models.StatusFailed
	failed.Progress = 40
	failed.Error = "download failed: unexpected status 403"
	failed.FinishedAt = &finished

	queued := models.NewJob("job3", "https://youtu.be/ccc", "", created)

	return &Export{
		Jobs:       []models.Job{done, failed, queued},
		Files:      []models.File{{Name: "Song One.mp3", Size: 2048, JobID: "job1"}},
		ExportedAt: created.Add(time.Hour),
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Status,Progress,Title,Source URL,Output,Error,Created,Finished\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "job1,completed,100.0,Song One,https://www.youtube.com/watch?v=aaa,downloads/Song One.mp3,,2024-03-01T10:00:00Z,2024-03-01T10:02:00Z") {
			t.Errorf("CSV missing completed row, got: %s", output)
		}
		if !strings.Contains(output, "job3,queued,0.0,,https://youtu.be/ccc,,,2024-03-01T10:00:00Z,\n") {
			t.Errorf("CSV missing queued row, got: %s", output)
		}
		if got := strings.Count(output, "\n"); got != 4 {
			t.Errorf("expected 4 lines, got %d", got)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Downloads",
			"**Jobs**: 3",
			"**Files**: 1 (2.0 KiB)",
			"## Completed",
			"1. Song One [100%] <https://www.youtube.com/watch?v=aaa>",
			"## Failed",
			"1. Custom, Name [40%] <https://www.youtube.com/watch?v=bbb> - _download failed: unexpected status 403_",
			"## Queued",
			"## Files",
			"- `Song One.mp3` (2.0 KiB)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "## Canceled") {
			t.Error("Markdown should skip empty status sections")
		}
		if strings.Index(output, "## Queued") > strings.Index(output, "## Completed") {
			t.Error("sections should follow lifecycle order")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Downloads: 3\nFiles: 1\n\n") {
			t.Errorf("unexpected text header: %s", output)
		}
		if !strings.Contains(output, "3. [queued] https://youtu.be/ccc (0%)") {
			t.Errorf("text should fall back to the source URL, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded Export
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
		if len(decoded.Jobs) != 3 || decoded.Jobs[1].Error == "" {
			t.Errorf("unexpected decoded jobs: %+v", decoded.Jobs)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"MD", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{" txt ", FormatText},
		{"json", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteExport(FormatMarkdown, sampleExport(), "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "downloads.md" {
			t.Errorf("expected downloads.md, got %s", path)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "# Downloads") {
			t.Errorf("unexpected content: %s", content)
		}
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "jobs.csv")

		got, err := WriteExport(FormatCSV, sampleExport(), path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		if _, err := WriteExport(Format("xml"), sampleExport(), filepath.Join(t.TempDir(), "x")); err == nil {
			t.Error("expected an error for an unknown format")
		}
	})
}
