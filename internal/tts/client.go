// Package tts wraps the self-hosted text-to-speech server used for brief
// narration. The server loads its model lazily on the first synthesis
// request, so the first call through a fresh engine pays the load cost.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	speechEndpoint = "/v1/audio/speech"
	healthEndpoint = "/health"

	defaultFormat = "mp3"
)

// SynthesisError is returned when the TTS server rejects a request or is
// unreachable. Callers use it to distinguish backend failures from local ones.
type SynthesisError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *SynthesisError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tts %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("tts %s: %s", e.Op, e.Detail)
}

// Client is an HTTP client for the TTS server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a TTS client for the given server base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// speechRequest is the JSON payload for the speech endpoint
type speechRequest struct {
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize converts text to audio bytes using the given voice.
// Empty or whitespace-only text is rejected before any network call.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &SynthesisError{Op: "synthesize", Detail: "text is empty"}
	}

	body, err := json.Marshal(speechRequest{
		Input:          text,
		Voice:          voiceID,
		ResponseFormat: defaultFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+speechEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SynthesisError{Op: "synthesize", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SynthesisError{
			Op:         "synthesize",
			StatusCode: resp.StatusCode,
			Detail:     string(detail),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{Op: "synthesize", Detail: "server returned empty audio"}
	}

	return audio, nil
}

// Health checks that the TTS server is up. Used once per job before any
// items are attempted, so a dead backend fails the job instead of every item.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SynthesisError{Op: "health", Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &SynthesisError{Op: "health", StatusCode: resp.StatusCode, Detail: "server not ready"}
	}
	return nil
}
