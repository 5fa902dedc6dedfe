package visual

// imageclient.go provides a REST API client for Gemini image generation.
// Direct HTTP calls are used instead of the Go SDK because the SDK does not
// cover image output; the wire types mirror the generateContent endpoint.

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// geminiBaseURL is the Gemini REST API base URL.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeneratedAsset is the output of one image or video generation call.
type GeneratedAsset struct {
	// Data holds the raw asset bytes when the model returns them inline.
	Data []byte

	// MIMEType of Data.
	MIMEType string

	// URI is set instead of Data when the model returns a hosted asset.
	URI string

	// Description is any text the model returned alongside the asset,
	// used as the validator's view of what was generated.
	Description string
}

// ImageClient calls a Gemini image model via REST for image generation.
type ImageClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewImageClient creates a client for the given image model.
func NewImageClient(apiKey, model string, timeout time.Duration) *ImageClient {
	return &ImageClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Model returns the model identifier, used in cache fingerprints.
func (c *ImageClient) Model() string {
	return c.model
}

// --- REST API request/response types ---

type generateRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *wireBlobData `json:"inlineData,omitempty"`
}

type wireGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type wireBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type generateResponse struct {
	Candidates []wireCandidate `json:"candidates"`
	Error      *wireError      `json:"error,omitempty"`
}

type wireCandidate struct {
	Content wireContent `json:"content"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate produces an image from the enhanced prompt.
func (c *ImageClient) Generate(ctx context.Context, prompt string) (*GeneratedAsset, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Int("prompt_length", len(prompt)).
		Msg("Starting image generation call")

	req := generateRequest{
		GenerationConfig: &wireGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
		Contents: []wireContent{{
			Role:  "user",
			Parts: []wirePart{{Text: prompt}},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", geminiBaseURL, c.model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Image generation API returned error")
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncateString(string(respBody), 200))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if genResp.Error != nil {
		return nil, fmt.Errorf("API error: %s (code: %d)", genResp.Error.Message, genResp.Error.Code)
	}

	result := &GeneratedAsset{}
	for _, candidate := range genResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode image data: %w", err)
				}
				result.Data = decoded
				result.MIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				result.Description += part.Text
			}
		}
	}

	if result.Data == nil {
		return nil, fmt.Errorf("no image returned in response (text: %s)", truncateString(result.Description, 200))
	}

	log.Info().
		Int("output_bytes", len(result.Data)).
		Str("output_mime", result.MIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Image generation complete")

	return result, nil
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
