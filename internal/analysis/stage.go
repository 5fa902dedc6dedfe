// Package analysis turns fetched web content and a free-text business
// description into a structured BusinessContext via one structured-extraction
// model call with defensive parsing. The stage fails soft: any combination
// of fetch failures, model failures, and malformed responses degrades to a
// salvaged or fully synthetic context — it never returns an error.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/campaign-engine/internal/assets"
	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/fallback"
	"github.com/fpang/campaign-engine/internal/jsonutil"
	"github.com/fpang/campaign-engine/internal/webfetch"
)

// TextGenerator is the single model call shape the stage needs.
// *gemini.Client satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, system, prompt string, temperature float32) (string, error)
}

// ContentFetcher retrieves per-URL page text. *webfetch.Fetcher satisfies it.
type ContentFetcher interface {
	Fetch(ctx context.Context, urls []string) []webfetch.PageResult
}

// Input carries everything the analysis works from.
type Input struct {
	Description    string
	Objective      string
	TargetAudience string
	URLs           []string
}

// Stage is the business analysis stage.
type Stage struct {
	fetcher   ContentFetcher
	generator TextGenerator // nil means no AI configured
	fb        *fallback.Engine
	model     string
	timeout   time.Duration
}

// New creates a Stage. generator may be nil, in which case every run takes
// the fallback path.
func New(fetcher ContentFetcher, generator TextGenerator, fb *fallback.Engine, model string, timeout time.Duration) *Stage {
	return &Stage{
		fetcher:   fetcher,
		generator: generator,
		fb:        fb,
		model:     model,
		timeout:   timeout,
	}
}

// Run produces a BusinessContext. It never returns an error: failures
// degrade through salvage parsing and finally the fallback engine, whose
// business-context path has no external dependencies.
func (s *Stage) Run(ctx context.Context, in Input) campaign.BusinessContext {
	start := time.Now()

	pages, successful := s.fetchAll(ctx, in.URLs)

	if s.generator == nil {
		log.Info().Msg("No AI configured — using fallback business context")
		bc := s.fb.BusinessContext(in.Description, in.Objective, in.TargetAudience)
		bc.SuccessfulScrapes = successful
		return bc
	}

	prompt := buildAnalysisPrompt(in, pages)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.GenerateText(callCtx, s.model, assets.AnalysisSystemPrompt, prompt, 0.3)
	if err != nil {
		log.Warn().Err(err).Msg("Business analysis call failed — using fallback context")
		bc := s.fb.BusinessContext(in.Description, in.Objective, in.TargetAudience)
		bc.SuccessfulScrapes = successful
		return bc
	}

	bc, parsed := s.parseResponse(raw, in)
	bc.SuccessfulScrapes = successful
	bc.AnalysisConfidence = confidence(parsed, successful)

	log.Info().
		Str("company", bc.CompanyName).
		Str("confidence", bc.AnalysisConfidence).
		Int("successful_scrapes", successful).
		Bool("ai_used", bc.AIUsed).
		Dur("duration", time.Since(start)).
		Msg("Business analysis complete")

	return bc
}

// fetchAll fetches the URLs (when any) and counts successes. Zero successes
// is not fatal — the analysis proceeds on the description alone.
func (s *Stage) fetchAll(ctx context.Context, urls []string) ([]webfetch.PageResult, int) {
	if len(urls) == 0 || s.fetcher == nil {
		return nil, 0
	}

	pages := s.fetcher.Fetch(ctx, urls)
	successful := 0
	for _, p := range pages {
		if p.OK() {
			successful++
		}
	}
	if successful == 0 {
		log.Warn().Int("urls", len(urls)).Msg("No URLs yielded text — analysing description only")
	}
	return pages, successful
}

// contextJSON mirrors the schema requested from the model.
type contextJSON struct {
	CompanyName           string                    `json:"company_name"`
	Industry              string                    `json:"industry"`
	BusinessDescription   string                    `json:"business_description"`
	TargetAudience        string                    `json:"target_audience"`
	BrandVoice            string                    `json:"brand_voice"`
	KeyMessaging          []string                  `json:"key_messaging"`
	CompetitiveAdvantages []string                  `json:"competitive_advantages"`
	ProductContext        campaign.ProductContext   `json:"product_context"`
	CampaignGuidance      campaign.CampaignGuidance `json:"campaign_guidance"`
}

// parseResponse handles the tagged decode outcome: a clean parse is used
// directly; malformed JSON goes through a best-effort key salvage merged
// over the fallback base; anything else is pure fallback. The bool result
// reports whether the model JSON parsed cleanly.
func (s *Stage) parseResponse(raw string, in Input) (campaign.BusinessContext, bool) {
	decoded, outcome, err := jsonutil.Decode[contextJSON](raw)

	switch outcome {
	case jsonutil.Parsed:
		return toBusinessContext(decoded, in), true

	case jsonutil.Malformed:
		log.Warn().Err(err).Msg("Analysis response JSON malformed — attempting key salvage")
		if bc, ok := s.salvage(raw, in); ok {
			return bc, false
		}
	default:
		log.Warn().Err(err).Msg("Analysis response contained no JSON")
	}

	return s.fb.BusinessContext(in.Description, in.Objective, in.TargetAudience), false
}

// salvage scrapes individual string fields out of malformed JSON. A salvage
// that recovers at least a company name or industry is considered usable;
// unrecovered fields keep the fallback base values.
func (s *Stage) salvage(raw string, in Input) (campaign.BusinessContext, bool) {
	bc := s.fb.BusinessContext(in.Description, in.Objective, in.TargetAudience)

	recovered := 0
	setStr := func(dst *string, key string) {
		if v, ok := jsonutil.ScrapeStringField(raw, key); ok && v != "" {
			*dst = v
			recovered++
		}
	}

	setStr(&bc.CompanyName, "company_name")
	setStr(&bc.Industry, "industry")
	setStr(&bc.BusinessDescription, "business_description")
	setStr(&bc.TargetAudience, "target_audience")
	setStr(&bc.BrandVoice, "brand_voice")
	setStr(&bc.ProductContext.DesignStyle, "design_style")
	setStr(&bc.ProductContext.BrandPersonality, "brand_personality")
	setStr(&bc.CampaignGuidance.CreativeDirection, "creative_direction")
	setStr(&bc.CampaignGuidance.VisualStyle, "visual_style")
	setStr(&bc.CampaignGuidance.MediaTuning, "media_tuning")

	if list := jsonutil.ScrapeStringList(raw, "key_messaging"); len(list) > 0 {
		bc.KeyMessaging = list
		recovered++
	}
	if list := jsonutil.ScrapeStringList(raw, "suggested_tags"); len(list) > 0 {
		bc.CampaignGuidance.SuggestedTags = list
		recovered++
	}
	if list := jsonutil.ScrapeStringList(raw, "color_palette"); len(list) > 0 {
		bc.ProductContext.ColorPalette = list
		recovered++
	}

	if recovered == 0 {
		return campaign.BusinessContext{}, false
	}

	log.Info().Int("fields_recovered", recovered).Msg("Salvaged partial business context from malformed JSON")
	bc.AIUsed = true
	return bc, true
}

// toBusinessContext converts the wire schema, filling gaps from the input.
func toBusinessContext(c contextJSON, in Input) campaign.BusinessContext {
	bc := campaign.BusinessContext{
		CompanyName:           c.CompanyName,
		Industry:              c.Industry,
		BusinessDescription:   c.BusinessDescription,
		TargetAudience:        c.TargetAudience,
		BrandVoice:            c.BrandVoice,
		KeyMessaging:          c.KeyMessaging,
		CompetitiveAdvantages: c.CompetitiveAdvantages,
		ProductContext:        c.ProductContext,
		CampaignGuidance:      c.CampaignGuidance,
		AIUsed:                true,
	}
	if bc.BusinessDescription == "" {
		bc.BusinessDescription = in.Description
	}
	if bc.TargetAudience == "" {
		bc.TargetAudience = in.TargetAudience
	}
	return bc
}

// confidence grades the analysis by how it parsed and what it had to read.
func confidence(parsedClean bool, successfulScrapes int) string {
	switch {
	case parsedClean && successfulScrapes > 0:
		return campaign.ConfidenceHigh
	case parsedClean || successfulScrapes > 0:
		return campaign.ConfidenceMedium
	default:
		return campaign.ConfidenceLow
	}
}

// buildAnalysisPrompt assembles the user prompt: objective and description
// first, then each successfully scraped page, capped per page.
func buildAnalysisPrompt(in Input, pages []webfetch.PageResult) string {
	const maxPageChars = 8000

	var sb strings.Builder
	sb.WriteString("## Business Analysis Task\n\n")
	sb.WriteString(fmt.Sprintf("Campaign objective: %s\n", in.Objective))
	if in.TargetAudience != "" {
		sb.WriteString(fmt.Sprintf("Stated target audience: %s\n", in.TargetAudience))
	}
	sb.WriteString(fmt.Sprintf("\nBusiness description from the user:\n%s\n", in.Description))

	wrote := 0
	for _, p := range pages {
		if !p.OK() {
			continue
		}
		text := p.Text
		if len(text) > maxPageChars {
			text = text[:maxPageChars]
		}
		wrote++
		sb.WriteString(fmt.Sprintf("\n### Scraped content %d: %s\n%s\n", wrote, p.URL, text))
	}

	if wrote == 0 {
		sb.WriteString("\nNo web content was reachable. Extract what you can from the description alone and infer the rest conservatively.\n")
	}

	return sb.String()
}
