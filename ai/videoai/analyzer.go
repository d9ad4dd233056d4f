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

package videoai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/poiesic/mediamind/ai"
)

// Analyzer implements ai.Analyzer against the media analysis REST API.
// Content is uploaded as multipart form data; the analysis then runs
// remotely and is observed through the status and insights endpoints.
type Analyzer struct {
	host   string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// uploadResponse is the body of a successful POST /analyses.
type uploadResponse struct {
	AnalysisID string `json:"analysis_id"`
}

// statusResponse is the body of GET /analyses/{id}.
type statusResponse struct {
	State   string `json:"state"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// insightsResponse is the body of GET /analyses/{id}/insights.
type insightsResponse struct {
	AnalysisID string `json:"analysis_id"`
	DurationMS int64  `json:"duration_ms"`
	Transcript []struct {
		StartMS int64  `json:"start_ms"`
		EndMS   int64  `json:"end_ms"`
		Text    string `json:"text"`
		Speaker string `json:"speaker"`
	} `json:"transcript"`
	VisualTags []struct {
		StartMS    int64   `json:"start_ms"`
		EndMS      int64   `json:"end_ms"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"visual_tags"`
	Metadata    map[string]string `json:"metadata"`
	CompletedAt time.Time         `json:"completed_at"`
}

// newAnalyzer is an internal constructor that returns the concrete type.
func newAnalyzer(config *ai.Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		host:   config.AnalyzerHost,
		apiKey: config.AnalyzerAPIKey,
		client: &http.Client{}, // no client timeout; uploads are large, callers pass ctx
		logger: slog.Default().With("component", "videoai-analyzer"),
	}, nil
}

// NewAnalyzer creates an analysis client using the provided configuration.
//
// Returns ai.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.Analyzer, error) {
	return newAnalyzer(config)
}

// Upload streams content to POST /analyses and returns the analysis ID.
func (a *Analyzer) Upload(ctx context.Context, content io.Reader, name string) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	// Stream the multipart body; large media never touches memory whole.
	go func() {
		part, err := form.CreateFormFile("media", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/analyses", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	a.authorize(req)

	a.logger.Debug("uploading media", "name", name)
	resp, err := a.client.Do(req)
	if err != nil {
		return "", ai.Transient(fmt.Errorf("upload request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusAccepted {
		return "", a.statusError("upload", resp)
	}

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", ai.Transient(fmt.Errorf("%w: decoding upload response: %v", ai.ErrInvalidResponse, err))
	}
	if body.AnalysisID == "" {
		return "", ai.Transient(fmt.Errorf("%w: upload response missing analysis_id", ai.ErrInvalidResponse))
	}

	a.logger.Info("media uploaded", "name", name, "analysis_id", body.AnalysisID)
	return body.AnalysisID, nil
}

// Status fetches GET /analyses/{id} and maps the service state to an
// ai.AnalysisState.
func (a *Analyzer) Status(ctx context.Context, externalID string) (ai.AnalysisState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.host+"/analyses/"+externalID, nil)
	if err != nil {
		return ai.AnalysisState{}, err
	}
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return ai.AnalysisState{}, ai.Transient(fmt.Errorf("status request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ai.AnalysisState{}, ai.Terminal(fmt.Errorf("%w: %s", ai.ErrAnalysisNotFound, externalID))
	}
	if resp.StatusCode != http.StatusOK {
		return ai.AnalysisState{}, a.statusError("status", resp)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ai.AnalysisState{}, ai.Transient(fmt.Errorf("%w: decoding status response: %v", ai.ErrInvalidResponse, err))
	}

	state := ai.AnalysisState{Percent: body.Percent, Message: body.Message}
	switch body.State {
	case "queued", "pending":
		state.Phase = ai.PhaseQueued
	case "processing", "running":
		state.Phase = ai.PhaseProcessing
	case "succeeded", "completed":
		state.Phase = ai.PhaseSucceeded
	case "failed", "error":
		state.Phase = ai.PhaseFailed
	default:
		return ai.AnalysisState{}, ai.Transient(fmt.Errorf("%w: unknown analysis state %q", ai.ErrInvalidResponse, body.State))
	}
	return state, nil
}

// Insights fetches GET /analyses/{id}/insights for a finished analysis.
func (a *Analyzer) Insights(ctx context.Context, externalID string) (*ai.Insights, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.host+"/analyses/"+externalID+"/insights", nil)
	if err != nil {
		return nil, err
	}
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, ai.Transient(fmt.Errorf("insights request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ai.Terminal(fmt.Errorf("%w: %s", ai.ErrAnalysisNotFound, externalID))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, a.statusError("insights", resp)
	}

	var body insightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, ai.Transient(fmt.Errorf("%w: decoding insights response: %v", ai.ErrInvalidResponse, err))
	}

	insights := &ai.Insights{
		ExternalID:  externalID,
		DurationMS:  body.DurationMS,
		Metadata:    body.Metadata,
		CompletedAt: body.CompletedAt,
	}
	for _, seg := range body.Transcript {
		insights.Transcript = append(insights.Transcript, ai.TranscriptSegment{
			StartMS: seg.StartMS,
			EndMS:   seg.EndMS,
			Text:    seg.Text,
			Speaker: seg.Speaker,
		})
	}
	for _, vt := range body.VisualTags {
		insights.VisualTags = append(insights.VisualTags, ai.VisualTag{
			StartMS:    vt.StartMS,
			EndMS:      vt.EndMS,
			Label:      vt.Label,
			Confidence: vt.Confidence,
		})
	}
	return insights, nil
}

func (a *Analyzer) authorize(req *http.Request) {
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
}

// statusError turns a non-success HTTP response into a classified error.
// Rate limits and server errors are transient; client errors are terminal.
func (a *Analyzer) statusError(op string, resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s: service returned %d: %s", op, resp.StatusCode, string(detail))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		a.logger.Warn("analysis service unavailable", "op", op, "status", resp.StatusCode)
		return ai.Transient(err)
	}
	a.logger.Error("analysis service rejected request", "op", op, "status", resp.StatusCode)
	return ai.Terminal(err)
}
