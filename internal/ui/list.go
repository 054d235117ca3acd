package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytmp3/internal/models"
)

var (
	_ list.Item = jobItem{}
)

// jobItem wraps [models.Job] to implement [list.Item]. bar is the pre-rendered progress bar.
type jobItem struct {
	job models.Job
	bar string
}

func (i jobItem) FilterValue() string { return jobName(i.job) }
func (i jobItem) Title() string {
	return fmt.Sprintf("%s  %s", styles.Status(i.job.Status).Render(i.job.Status.String()), jobName(i.job))
}
func (i jobItem) Description() string {
	switch {
	case i.job.Status == models.StatusFailed:
		return i.job.Error
	case i.job.Status == models.StatusCompleted:
		return i.job.OutputPath
	}
	return fmt.Sprintf("%s %5.1f%%", i.bar, i.job.Progress)
}

func jobName(job models.Job) string {
	switch {
	case job.CustomName != "":
		return job.CustomName
	case job.Title != "":
		return job.Title
	}
	return job.SourceURL
}
