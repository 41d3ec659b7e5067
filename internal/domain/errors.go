package domain

import "fmt"

// FetchError records a page that could not be retrieved after all retries.
// It becomes a technical issue and never fails the job.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError records a structured-data block with invalid syntax.
type ParseError struct {
	Page   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s block on %s: %v", e.Format, e.Page, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError rejects an audit request before a job is created.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RobotsFetchError means robots.txt was unreachable; the host is treated as allow-all.
type RobotsFetchError struct {
	Host string
	Err  error
}

func (e *RobotsFetchError) Error() string {
	return fmt.Sprintf("robots.txt for %s: %v", e.Host, e.Err)
}

func (e *RobotsFetchError) Unwrap() error { return e.Err }
