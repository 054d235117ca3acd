package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Job errors
	ErrNotFound        = fmt.Errorf("download not found")
	ErrAlreadyTerminal = fmt.Errorf("download already finished")
	ErrCapacity        = fmt.Errorf("download queue is full")
	ErrInvalidState    = fmt.Errorf("invalid status transition")
	ErrPoolClosed      = fmt.Errorf("worker pool is closed")

	// Upstream and tool errors, recorded on jobs
	ErrMetadata   = fmt.Errorf("metadata resolution failed")
	ErrFetch      = fmt.Errorf("download failed")
	ErrConversion = fmt.Errorf("conversion failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
