// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/models"
)

// Ensure HTTPClient implements Extractor
var _ Extractor = (*HTTPClient)(nil)

// extractRequest is the body sent to the extraction service.
type extractRequest struct {
	TrackPath string `json:"track_path"`
}

// extractResponse carries the three sub-feature groups.
type extractResponse struct {
	MFCC     []float64 `json:"mfcc"`
	Chroma   []float64 `json:"chroma"`
	Contrast []float64 `json:"contrast"`
}

// errorResponse is returned by the service on non-2xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// maxErrorBody caps how much of an error response body is read.
const maxErrorBody = 4096

// HTTPClient calls an extraction service:
//
//	POST {baseURL}/extract {"track_path": "..."}
//	200 {"mfcc": [...], "chroma": [...], "contrast": [...]}
//	422 {"error": "..."} when the content cannot be decoded
type HTTPClient struct {
	baseURL    string
	layout     models.FeatureLayout
	httpClient *http.Client
}

// NewHTTPClient creates an extraction service client.
//
// Parameters:
//   - baseURL: service URL (e.g., http://localhost:9090)
//   - timeout: per-request HTTP timeout
//   - layout: expected size of each feature group
func NewHTTPClient(baseURL string, timeout time.Duration, layout models.FeatureLayout) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		layout:  layout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract requests the features of one track.
func (c *HTTPClient) Extract(ctx context.Context, trackPath string) (models.FeatureVector, error) {
	body, err := json.Marshal(extractRequest{TrackPath: trackPath})
	if err != nil {
		return models.FeatureVector{}, fmt.Errorf("failed to encode extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return models.FeatureVector{}, fmt.Errorf("failed to create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.FeatureVector{}, fmt.Errorf("extract request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusNotFound:
		return models.FeatureVector{}, NewDecodeError(trackPath, readErrorMessage(resp.Body, resp.StatusCode), nil)
	default:
		return models.FeatureVector{}, fmt.Errorf("extraction service returned status %d: %s",
			resp.StatusCode, readErrorMessage(resp.Body, resp.StatusCode))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.FeatureVector{}, fmt.Errorf("failed to decode extract response: %w", err)
	}

	return c.assemble(trackPath, out)
}

// assemble concatenates the feature groups in layout order.
func (c *HTTPClient) assemble(trackPath string, out extractResponse) (models.FeatureVector, error) {
	groups := []struct {
		name   string
		values []float64
		want   int
	}{
		{"mfcc", out.MFCC, c.layout.MFCC},
		{"chroma", out.Chroma, c.layout.Chroma},
		{"contrast", out.Contrast, c.layout.Contrast},
	}

	values := make([]float64, 0, c.layout.Dimension())
	for _, g := range groups {
		if len(g.values) != g.want {
			return models.FeatureVector{}, fmt.Errorf("%s group for %s: %w", g.name, trackPath,
				&models.DimensionMismatchError{Want: g.want, Got: len(g.values)})
		}
		values = append(values, g.values...)
	}

	vec, err := models.NewFeatureVector(values)
	if err != nil {
		return models.FeatureVector{}, NewDecodeError(trackPath, "service returned unusable features", err)
	}
	return vec, nil
}

func readErrorMessage(r io.Reader, status int) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return http.StatusText(status)
	}
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(data))
}
