package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmp3/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobsFetched MsgKind = iota
	MsgCancelDone
	MsgTick
)

type jobsFetched struct {
	jobs  []models.Job
	stats *models.Stats
	err   error
}

type cancelDone struct {
	id  string
	job *models.Job
	err error
}

// jobsFetchedMsg is the constructor for [MsgJobsFetched]
func jobsFetchedMsg(jobs []models.Job, stats *models.Stats, err error) Msg {
	return Msg{kind: MsgJobsFetched, data: jobsFetched{jobs, stats, err}}
}

// cancelDoneMsg is the constructor for [MsgCancelDone]
func cancelDoneMsg(id string, job *models.Job, err error) Msg {
	return Msg{kind: MsgCancelDone, data: cancelDone{id, job, err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}
