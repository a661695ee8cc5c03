package fixer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentcore/resilience"
)

// File is one candidate handed to the auto-fix service: the target path and
// the intended final content computed by Replay.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Service is the external auto-fix collaborator. Fix returns a multi-file
// unified diff, or an empty string when the service has nothing to change.
type Service interface {
	Fix(ctx context.Context, files []File) (string, error)
}

// HTTPServiceOptions configures an HTTPService.
type HTTPServiceOptions struct {
	HTTPClient *http.Client
	APIKey     string
}

// HTTPService calls a JSON-over-HTTP auto-fix endpoint.
type HTTPService struct {
	endpoint string
	client   *http.Client
	apiKey   string
}

// NewHTTPService creates a service client for the given endpoint.
func NewHTTPService(endpoint string, optFns ...func(o *HTTPServiceOptions)) *HTTPService {
	opts := HTTPServiceOptions{
		HTTPClient: http.DefaultClient,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &HTTPService{
		endpoint: endpoint,
		client:   opts.HTTPClient,
		apiKey:   opts.APIKey,
	}
}

// Fix posts the candidate files and extracts the diff from the response.
// Non-2xx statuses surface as resilience.ServiceError so the retry layer can
// classify them.
func (s *HTTPService) Fix(ctx context.Context, files []File) (string, error) {
	body, err := json.Marshal(map[string]any{"files": files})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call fixer service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &resilience.ServiceError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
		}
	}

	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("invalid fixer response")
	}

	// A null or absent diff means the service had nothing to change.
	return gjson.GetBytes(data, "diff").String(), nil
}
