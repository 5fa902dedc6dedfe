package visual

// videoclient.go provides a REST API client for Veo video generation. Video
// generation is a long-running operation: predictLongRunning starts it and
// the operation endpoint is polled until done, all within the caller's
// context deadline.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// videoPollInterval is how often a pending video operation is re-checked.
const videoPollInterval = 10 * time.Second

// VideoClient calls a Veo model via REST for video generation.
type VideoClient struct {
	apiKey     string
	model      string
	httpClient *http.Client

	// AspectRatio is the requested output ratio ("16:9" or "9:16").
	AspectRatio string

	// PersonGeneration is the person-generation policy passed through to
	// the model ("allow_adult" by default).
	PersonGeneration string
}

// NewVideoClient creates a client for the given video model. The timeout
// bounds individual HTTP calls; the overall generation is bounded by the
// caller's context.
func NewVideoClient(apiKey, model string, timeout time.Duration) *VideoClient {
	return &VideoClient{
		apiKey:           apiKey,
		model:            model,
		httpClient:       &http.Client{Timeout: timeout},
		AspectRatio:      "16:9",
		PersonGeneration: "allow_adult",
	}
}

// Model returns the model identifier, used in cache fingerprints.
func (c *VideoClient) Model() string {
	return c.model
}

// --- REST API request/response types ---

type videoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

type videoParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type videoOperation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *wireError      `json:"error,omitempty"`
	Response *videoOpPayload `json:"response,omitempty"`
}

type videoOpPayload struct {
	GenerateVideoResponse *videoGenResponse `json:"generateVideoResponse,omitempty"`
}

type videoGenResponse struct {
	GeneratedSamples []videoSample `json:"generatedSamples"`
}

type videoSample struct {
	Video videoHandle `json:"video"`
}

type videoHandle struct {
	URI string `json:"uri"`
}

// Generate produces a video from the enhanced prompt, blocking until the
// long-running operation completes or ctx expires.
func (c *VideoClient) Generate(ctx context.Context, prompt string) (*GeneratedAsset, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Int("prompt_length", len(prompt)).
		Msg("Starting video generation operation")

	opName, err := c.start(ctx, prompt)
	if err != nil {
		return nil, err
	}

	uri, err := c.poll(ctx, opName)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("operation", opName).
		Dur("duration", time.Since(startTime)).
		Msg("Video generation complete")

	return &GeneratedAsset{
		URI:         uri,
		MIMEType:    "video/mp4",
		Description: "generated video for prompt: " + truncateString(prompt, 200),
	}, nil
}

// start kicks off the long-running operation and returns its name.
func (c *VideoClient) start(ctx context.Context, prompt string) (string, error) {
	req := videoRequest{
		Instances: []videoInstance{{Prompt: prompt}},
		Parameters: videoParameters{
			AspectRatio:      c.AspectRatio,
			PersonGeneration: c.PersonGeneration,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning?key=%s", geminiBaseURL, c.model, c.apiKey)

	var op videoOperation
	if err := c.doJSON(ctx, http.MethodPost, url, body, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("video operation did not return a name")
	}
	return op.Name, nil
}

// poll re-checks the operation until done, failure, or context expiry.
func (c *VideoClient) poll(ctx context.Context, opName string) (string, error) {
	url := fmt.Sprintf("%s/%s?key=%s", geminiBaseURL, opName, c.apiKey)

	ticker := time.NewTicker(videoPollInterval)
	defer ticker.Stop()

	for {
		var op videoOperation
		if err := c.doJSON(ctx, http.MethodGet, url, nil, &op); err != nil {
			return "", err
		}

		if op.Done {
			if op.Error != nil {
				return "", fmt.Errorf("video operation failed: %s (code: %d)", op.Error.Message, op.Error.Code)
			}
			if op.Response == nil || op.Response.GenerateVideoResponse == nil ||
				len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
				return "", fmt.Errorf("video operation completed without samples")
			}
			uri := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
			if uri == "" {
				return "", fmt.Errorf("video operation returned an empty URI")
			}
			return uri, nil
		}

		log.Debug().Str("operation", opName).Msg("Video operation still running")

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("video generation timed out: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// doJSON executes one HTTP call and decodes the JSON response into out.
func (c *VideoClient) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Video API returned error")
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncateString(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
