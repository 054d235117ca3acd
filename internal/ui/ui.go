package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
)

// DefaultInterval is the polling period used when none is given.
const DefaultInterval = time.Second

// ViewState represents the current view in the TUI.
type ViewState int

const (
	JobListView ViewState = iota
	DetailView
	ConfirmCancelView
)

// Client is the subset of the API client the dashboard polls.
type Client interface {
	Downloads(ctx context.Context) (map[string]models.Job, error)
	Stats(ctx context.Context) (*models.Stats, error)
	Cancel(ctx context.Context, id string) (*models.Job, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	client      Client
	interval    time.Duration
	view        ViewState
	width       int
	height      int
	jobList     list.Model
	jobs        []models.Job
	selected    *models.Job
	stats       *models.Stats
	bar         progress.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
	err         error
	notice      string
	lastRefresh time.Time
}

// NewModel creates a dashboard that polls client every interval.
func NewModel(ctx context.Context, client Client, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	jobList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	jobList.Title = "Downloads"
	jobList.SetFilteringEnabled(false)
	jobList.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		client:   client,
		interval: interval,
		view:     JobListView,
		jobList:  jobList,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init fetches the first snapshot and starts the poll and spinner timers.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchJobs(), m.tick(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.jobList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case JobListView:
			return m.handleJobListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmCancelView:
			return m.handleConfirmKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.jobList, cmd = m.jobList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		return m, tea.Batch(m.fetchJobs(), m.tick())

	case MsgJobsFetched:
		data := msg.data.(jobsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.stats = data.stats
		m.lastRefresh = time.Now()
		return m, m.setJobs(data.jobs)

	case MsgCancelDone:
		data := msg.data.(cancelDone)
		switch {
		case errors.Is(data.err, shared.ErrAlreadyTerminal):
			m.notice = fmt.Sprintf("%s already finished", shortID(data.id))
		case data.err != nil:
			m.notice = fmt.Sprintf("cancel %s failed: %v", shortID(data.id), data.err)
		default:
			m.notice = fmt.Sprintf("canceled %s", shortID(data.id))
		}
		return m, m.fetchJobs()
	}
	return m, nil
}

// setJobs replaces the list contents, newest first, and keeps the detail view current.
func (m *Model) setJobs(jobs []models.Job) tea.Cmd {
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	m.jobs = jobs

	items := make([]list.Item, len(jobs))
	for i, job := range jobs {
		items[i] = jobItem{job: job, bar: m.bar.ViewAs(job.Progress / 100)}
		if m.selected != nil && m.selected.ID == job.ID {
			m.selected = &jobs[i]
		}
	}
	return m.jobList.SetItems(items)
}

func (m *Model) handleJobListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchJobs()
	case key.Matches(msg, m.keys.enter):
		if job := m.current(); job != nil {
			m.selected = job
			m.view = DetailView
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		return m.confirmCancel(m.current())
	}

	var cmd tea.Cmd
	m.jobList, cmd = m.jobList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = JobListView
		m.selected = nil
	case key.Matches(msg, m.keys.cancel):
		return m.confirmCancel(m.selected)
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		id := m.selected.ID
		m.view = JobListView
		m.selected = nil
		return m, m.cancelJob(id)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = JobListView
		m.selected = nil
	}
	return m, nil
}

func (m *Model) confirmCancel(job *models.Job) (tea.Model, tea.Cmd) {
	if job == nil {
		return m, nil
	}
	if job.Status.IsTerminal() {
		m.notice = fmt.Sprintf("%s already finished", shortID(job.ID))
		return m, nil
	}
	m.selected = job
	m.view = ConfirmCancelView
	return m, nil
}

func (m *Model) current() *models.Job {
	if item, ok := m.jobList.SelectedItem().(jobItem); ok {
		job := item.job
		return &job
	}
	return nil
}

func (m *Model) fetchJobs() tea.Cmd {
	return func() tea.Msg {
		byID, err := m.client.Downloads(m.ctx)
		if err != nil {
			return jobsFetchedMsg(nil, nil, err)
		}
		stats, err := m.client.Stats(m.ctx)
		if err != nil {
			return jobsFetchedMsg(nil, nil, err)
		}

		jobs := make([]models.Job, 0, len(byID))
		for _, job := range byID {
			jobs = append(jobs, job)
		}
		return jobsFetchedMsg(jobs, stats, nil)
	}
}

func (m *Model) cancelJob(id string) tea.Cmd {
	return func() tea.Msg {
		job, err := m.client.Cancel(m.ctx, id)
		return cancelDoneMsg(id, job, err)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DetailView:
		return m.renderDetail()
	case ConfirmCancelView:
		return m.renderConfirm()
	default:
		return m.renderJobList()
	}
}

func (m *Model) renderJobList() string {
	var b strings.Builder

	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")
	if len(m.jobs) == 0 {
		b.WriteString(styles.help.Render("No downloads yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.jobList.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusLine())

	helpKeys := []key.Binding{m.keys.enter, m.keys.cancel, m.keys.refresh, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderSummary() string {
	if m.stats == nil {
		return fmt.Sprintf("%s loading...", m.spinner.View())
	}

	active := m.stats.ByStatus[models.StatusDownloading] + m.stats.ByStatus[models.StatusConverting]
	prefix := "  "
	if active > 0 {
		prefix = m.spinner.View() + " "
	}
	return prefix + fmt.Sprintf("%d active · %d queued · %s · %s · %s · %d files (%s)",
		active,
		m.stats.ByStatus[models.StatusQueued],
		styles.ok.Render(fmt.Sprintf("%d completed", m.stats.ByStatus[models.StatusCompleted])),
		styles.err.Render(fmt.Sprintf("%d failed", m.stats.ByStatus[models.StatusFailed])),
		styles.help.Render(fmt.Sprintf("%d canceled", m.stats.ByStatus[models.StatusCanceled])),
		m.stats.TotalFiles,
		shared.FormatBytes(m.stats.DiskUsage),
	)
}

func (m *Model) renderStatusLine() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.notice != "":
		return styles.warn.Render(m.notice)
	case !m.lastRefresh.IsZero():
		return styles.help.Render("updated " + m.lastRefresh.Format(time.TimeOnly))
	}
	return ""
}

func (m *Model) renderDetail() string {
	job := m.selected
	title := styles.title.Render(jobName(*job))

	rows := [][2]string{
		{"ID", job.ID},
		{"Status", styles.Status(job.Status).Render(job.Status.String())},
		{"Progress", fmt.Sprintf("%s %.1f%%", m.bar.ViewAs(job.Progress/100), job.Progress)},
		{"Source", job.SourceURL},
		{"Created", job.CreatedAt.Local().Format(time.DateTime)},
	}
	if job.Title != "" {
		rows = append(rows, [2]string{"Title", job.Title})
	}
	if job.Uploader != "" {
		rows = append(rows, [2]string{"Uploader", job.Uploader})
	}
	if job.Duration > 0 {
		rows = append(rows, [2]string{"Length", shared.FormatDuration(int(job.Duration))})
	}
	if job.OutputPath != "" {
		rows = append(rows, [2]string{"Output", job.OutputPath})
	}
	if job.Error != "" {
		rows = append(rows, [2]string{"Error", styles.err.Render(job.Error)})
	}
	if job.FinishedAt != nil {
		rows = append(rows, [2]string{"Finished", job.FinishedAt.Local().Format(time.DateTime)})
	}

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%-9s %s\n", row[0], row[1])
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.cancel, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Cancel '%s'?", jobName(*m.selected)))
	info := fmt.Sprintf("\nStatus: %s\nProgress: %.1f%%\n", m.selected.Status, m.selected.Progress)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
