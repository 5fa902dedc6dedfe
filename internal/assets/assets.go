// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time, keeping multi-paragraph model instructions out of Go string
// literals.
package assets

import (
	_ "embed"
)

// AnalysisSystemPrompt instructs the model to extract a structured
// BusinessContext JSON object from scraped web content and a description.
//
//go:embed prompts/analysis-system.txt
var AnalysisSystemPrompt string

// ContentSystemPrompt instructs the model to produce a batch of campaign
// posts as a JSON array, with per-post-type length and CTA rules.
//
//go:embed prompts/content-system.txt
var ContentSystemPrompt string

// ValidationSystemPrompt instructs the model to score a generated asset
// against the post copy and campaign guidance, returning a JSON verdict.
//
//go:embed prompts/validation-system.txt
var ValidationSystemPrompt string
