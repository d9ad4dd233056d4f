// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import "errors"

// Common AI service errors.
var (
	// ErrAnalysisFailed indicates the remote service reported a failed
	// analysis for the content.
	ErrAnalysisFailed = errors.New("remote analysis failed")

	// ErrAnalysisNotFound indicates the external identifier is unknown to
	// the remote service.
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrEmptyInput indicates a request was made with no content.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidResponse indicates the service returned a response that
	// could not be interpreted.
	ErrInvalidResponse = errors.New("invalid service response")
)

// transientError marks a failure worth retrying: timeouts, rate limits,
// server-side hiccups.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// terminalError marks a failure that will not succeed on retry: rejected
// content, authentication problems, malformed requests.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Transient wraps err so that IsTransient reports true for it. Returns nil
// if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Terminal wraps err so that IsTerminal reports true for it. Returns nil
// if err is nil.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// IsTerminal reports whether err is classified as permanent.
func IsTerminal(err error) bool {
	var te *terminalError
	return errors.As(err, &te)
}
