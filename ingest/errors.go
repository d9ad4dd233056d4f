package ingest

import "errors"

var (
	// ErrTaskRepositoryRequired is returned when a task repository is not provided.
	ErrTaskRepositoryRequired = errors.New("task repository required")

	// ErrAnalysisCacheRequired is returned when an analysis cache is not provided.
	ErrAnalysisCacheRequired = errors.New("analysis cache required")

	// ErrIndexRepositoryRequired is returned when an index repository is not provided.
	ErrIndexRepositoryRequired = errors.New("index repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidMaxAttempts is returned when a retry policy is configured
	// with a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrAnalysisTimeout is returned when a remote analysis does not settle
	// within the await ceiling.
	ErrAnalysisTimeout = errors.New("remote analysis did not finish in time")

	// ErrCancelRequested signals that the task's cancel flag was observed at
	// a step boundary. Pipeline-internal; callers see StatusCancelled.
	ErrCancelRequested = errors.New("cancellation requested")

	// ErrManagerClosed is returned for submissions after Close.
	ErrManagerClosed = errors.New("manager closed")
)
