// Package models defines the domain entities of the download service.
//
//   - [Job] : one requested download and its tracked lifecycle
//   - [Status] : the job state machine; terminal states freeze a record
//   - [File] : a converted artifact on disk, derived from the output directory and completed jobs
//
// The [Repository] interface is the contract of the job table; implementations
// live in the repositories package.
package models
