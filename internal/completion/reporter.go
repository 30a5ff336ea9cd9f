package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Reporter publishes a completion to the course server.
type Reporter interface {
	Report(ctx context.Context, url string) error
}

// ReportError is returned when the server answers with a non-2xx status.
type ReportError struct {
	StatusCode int
	// Message is the "error" field of the response body, if any.
	Message string
}

func (e *ReportError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion rejected with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion rejected with status %d", e.StatusCode)
}

type completionPayload struct {
	Completion float64 `json:"completion"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// HTTPReporter posts {"completion": 1.0} as JSON.
type HTTPReporter struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPReporter creates a reporter. A nil client gets one without a timeout.
func NewHTTPReporter(client *http.Client, userAgent string) *HTTPReporter {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPReporter{httpClient: client, userAgent: userAgent}
}

// Report sends the completion. Any 2xx response is success.
func (r *HTTPReporter) Report(ctx context.Context, url string) error {
	body, err := json.Marshal(completionPayload{Completion: 1.0})
	if err != nil {
		return fmt.Errorf("failed to marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post completion to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	reportErr := &ReportError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload errorPayload
	if json.Unmarshal(data, &payload) == nil {
		reportErr.Message = payload.Error
	}
	return reportErr
}
