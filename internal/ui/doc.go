// Package ui implements a terminal dashboard for a running download server using bubbletea's Elm architecture.
//
// The dashboard has three views:
//  1. [JobListView] : every job, newest first, with status badges and progress bars
//  2. [DetailView] : the fields of one job
//  3. [ConfirmCancelView] : confirm canceling a queued or running job
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It polls the server through a [Client] on a fixed interval; a failed poll is shown in the status line
// and retried on the next tick.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
