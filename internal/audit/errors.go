package audit

import "errors"

var (
	// ErrJobNotFound is returned for an unknown job ID.
	ErrJobNotFound = errors.New("audit job not found")

	// ErrIssueNotFound is returned when resolving an issue the job does not have.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrReportNotReady is returned while a job is still running.
	ErrReportNotReady = errors.New("report not ready")
)
