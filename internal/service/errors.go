package service

import "fmt"

// InvalidURLError indicates the submitted URL carries no recognizable
// YouTube video ID.
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("not a valid YouTube video URL: %s", e.URL)
}

// NotFoundError indicates a video is absent, either upstream or locally.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// UpstreamError indicates a provider transport or API failure.
type UpstreamError struct {
	Message string
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// ConfigError indicates a required credential or setting is missing.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// StorageError indicates a persistence failure (constraint violation,
// oversize field, or other database error).
type StorageError struct {
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
