package job

// Status is the lifecycle state of a job.
type Status int

const (
	// StatusQueued means the job waits for admission.
	StatusQueued Status = iota
	// StatusRunning means the entry point is executing on a worker.
	StatusRunning
	// StatusCancelling means cancellation was requested while running.
	StatusCancelling
	// StatusCancelled is terminal: the job was cancelled.
	StatusCancelled
	// StatusCompleted is terminal: the entry point returned successfully.
	StatusCompleted
	// StatusFailed is terminal: the entry point returned an error or panicked.
	StatusFailed
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusCancelling:
		return "cancelling"
	case StatusCancelled:
		return "cancelled"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusFailed
}

// Active reports whether a job in status s occupies a worker.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusCancelling
}
