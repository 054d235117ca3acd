// Package tasks runs download jobs on a bounded worker pool and reports their progress.
//
// # Manager
//
// [Manager] is the only entry point used by the HTTP layer:
//
//  1. [Manager.Submit] : validates the request, stores a queued job and enqueues it
//  2. [Manager.GetStatus] / [Manager.ListJobs] : snapshots from the job table
//  3. [Manager.Cancel] : marks a job canceled, then cancels its slot context or drops it from the queue
//  4. [Manager.Files] / [Manager.Stats] : output directory listing and counters
//  5. [Manager.Recover] : requeues or fails jobs loaded from a durable journal
//
// # Pool
//
// [Pool] runs a fixed number of slots reading job ids from a FIFO queue. Under the
// "queue" policy a job is refused only when the queue is full; under "reject" it is
// refused whenever every slot is taken. A canceled job that has not started leaves
// the queue immediately.
//
// # Job Pipeline
//
// Each job goes queued → downloading → converting → completed. The resolver supplies a
// title and stream URL, the fetcher writes the stream into the partial directory and the
// converter produces the MP3, which is renamed into the output directory. Every progress
// update goes through the store, so a job canceled meanwhile stops at its next update.
//
// # Events
//
// Status changes are published as [Event] values. Delivery uses select with default so
// slow subscribers lose events instead of stalling workers.
package tasks
