package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/ytmp3/internal/models"
)

// Files lists the MP3 files in the output directory, linking each to the completed job that produced it.
func (m *Manager) Files() ([]models.File, error) {
	files, err := listFiles(m.config.Downloads.OutputDir, m.store.List())
	if err != nil {
		return nil, err
	}
	m.events.publish(filesEvent(files, m.now()))
	return files, nil
}

func listFiles(dir string, jobs []models.Job) ([]models.File, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	owners := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if j.Status == models.StatusCompleted && j.OutputPath != "" {
			owners[filepath.Base(j.OutputPath)] = j.ID
		}
	}

	files := make([]models.File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed while listing
		}
		files = append(files, models.File{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
			JobID:     owners[entry.Name()],
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Stats counts jobs per status and sums the size of the output files.
func (m *Manager) Stats() (models.Stats, error) {
	jobs := m.store.List()

	stats := models.Stats{ByStatus: make(map[models.Status]int, len(models.Statuses))}
	for _, s := range models.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, j := range jobs {
		stats.ByStatus[j.Status]++
		if j.Status == models.StatusQueued || j.Status.IsActive() {
			stats.DownloadCount++
		}
	}

	files, err := listFiles(m.config.Downloads.OutputDir, jobs)
	if err != nil {
		return stats, err
	}
	stats.TotalFiles = len(files)
	for _, f := range files {
		stats.DiskUsage += f.Size
	}
	return stats, nil
}
