// Package videoai provides the ai.Analyzer client for the remote media
// analysis REST API.
//
// The service exposes three endpoints:
//
//	POST /analyses              multipart upload, returns an analysis_id
//	GET  /analyses/{id}         current state of the analysis
//	GET  /analyses/{id}/insights  transcript, visual tags, and metadata
//
// Failures are classified for retry handling: rate limits (429) and server
// errors (5xx) come back wrapped with ai.Transient, client errors (4xx)
// with ai.Terminal.
package videoai
