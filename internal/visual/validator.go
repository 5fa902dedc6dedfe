package visual

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/campaign-engine/internal/assets"
	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/jsonutil"
)

// TextGenerator is the model call used for validation scoring.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, system, prompt string, temperature float32) (string, error)
}

// Validator scores generated visual assets against the campaign's brand and
// content requirements using a lightweight text model.
type Validator struct {
	generator TextGenerator
	model     string
	threshold int
	timeout   time.Duration
}

// NewValidator creates a validator. threshold is the minimum acceptable
// overall score (0-100).
func NewValidator(generator TextGenerator, model string, threshold int, timeout time.Duration) *Validator {
	return &Validator{
		generator: generator,
		model:     model,
		threshold: threshold,
		timeout:   timeout,
	}
}

// Threshold returns the acceptance score.
func (v *Validator) Threshold() int {
	return v.threshold
}

type validationJSON struct {
	OverallScore    int      `json:"overall_score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Validate scores an asset and returns the result. A validator call failure
// is reported as a zero-score rejection rather than an error, so the
// generation loop treats it like any other rejection.
func (v *Validator) Validate(ctx context.Context, asset *GeneratedAsset, post *campaign.DraftPost, bc *campaign.BusinessContext) *campaign.ValidationResult {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	prompt := buildValidationPrompt(asset, post, bc)
	raw, err := v.generator.GenerateText(ctx, v.model, assets.ValidationSystemPrompt, prompt, 0.2)
	if err != nil {
		log.Warn().
			Err(err).
			Str("post_id", post.ID).
			Msg("Validation call failed, treating asset as rejected")
		return &campaign.ValidationResult{
			Valid:        false,
			OverallScore: 0,
			Issues:       []string{"validation unavailable: " + err.Error()},
		}
	}

	parsed, outcome, decodeErr := jsonutil.Decode[validationJSON](raw)
	if outcome != jsonutil.Parsed {
		log.Warn().
			AnErr("decode_error", decodeErr).
			Str("post_id", post.ID).
			Str("outcome", outcome.String()).
			Msg("Validation response was not parseable, treating asset as rejected")
		return &campaign.ValidationResult{
			Valid:        false,
			OverallScore: 0,
			Issues:       []string{"validation response unparseable"},
		}
	}

	score := parsed.OverallScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result := &campaign.ValidationResult{
		Valid:           score >= v.threshold,
		OverallScore:    score,
		Issues:          parsed.Issues,
		Recommendations: parsed.Recommendations,
	}

	log.Info().
		Str("post_id", post.ID).
		Int("score", score).
		Bool("valid", result.Valid).
		Dur("duration", time.Since(startTime)).
		Msg("Asset validation complete")

	return result
}

// buildValidationPrompt describes the asset and campaign context for the
// scoring model.
func buildValidationPrompt(asset *GeneratedAsset, post *campaign.DraftPost, bc *campaign.BusinessContext) string {
	var sb strings.Builder

	sb.WriteString("Evaluate the following generated marketing asset.\n\n")
	fmt.Fprintf(&sb, "Asset type: %s\n", post.Type)
	if asset.Description != "" {
		fmt.Fprintf(&sb, "Asset description: %s\n", asset.Description)
	}
	fmt.Fprintf(&sb, "Post text it accompanies: %s\n\n", post.Text)

	fmt.Fprintf(&sb, "Company: %s\n", bc.CompanyName)
	fmt.Fprintf(&sb, "Industry: %s\n", bc.Industry)
	fmt.Fprintf(&sb, "Brand voice: %s\n", bc.BrandVoice)
	if len(bc.ProductContext.ColorPalette) > 0 {
		fmt.Fprintf(&sb, "Brand colors: %s\n", strings.Join(bc.ProductContext.ColorPalette, ", "))
	}
	fmt.Fprintf(&sb, "Target audience: %s\n", bc.TargetAudience)

	return sb.String()
}
