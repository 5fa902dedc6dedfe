// Package gemini wraps the Gemini SDK behind the one call shape the
// pipeline needs: a system-instructed text generation returning raw response
// text. Parsing of the response is owned entirely by the callers.
package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Client is a thin wrapper over the Gemini SDK client.
type Client struct {
	genai *genai.Client
}

// NewClient creates a Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{genai: c}, nil
}

// GenerateText sends a prompt with a system instruction to the given model
// and returns the raw response text. Temperature 0 means model default.
func (c *Client) GenerateText(ctx context.Context, model, system, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if temperature > 0 {
		config.Temperature = genai.Ptr(temperature)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	log.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Msg("Starting Gemini text generation call")

	callStart := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, config)
	duration := time.Since(callStart)

	if err != nil {
		log.Error().Err(err).Str("model", model).Dur("duration", duration).Msg("Gemini call failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || resp.Text() == "" {
		log.Warn().Str("model", model).Dur("duration", duration).Msg("Received empty response from Gemini")
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	text := resp.Text()
	log.Debug().
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", duration).
		Msg("Gemini text generation complete")

	return text, nil
}
