// Package textgen produces the ordered draft post list for one generation
// request. Cost control is structural: the full requested count for a post
// type is batched into a single model call. A failed call is retried once,
// then the fallback engine fills whatever shortfall remains so the returned
// list always has exactly the requested number of entries.
package textgen

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
)

// TextGenerator is the single model call shape the stage needs.
// *gemini.Client satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, system, prompt string, temperature float32) (string, error)
}

// Stage is the content generation stage.
type Stage struct {
	generator TextGenerator // nil means no AI configured
	fb        *fallback.Engine
	model     string
	timeout   time.Duration
}

// New creates a Stage. generator may be nil, in which case every request is
// served entirely by the fallback engine.
func New(generator TextGenerator, fb *fallback.Engine, model string, timeout time.Duration) *Stage {
	return &Stage{generator: generator, fb: fb, model: model, timeout: timeout}
}

// postJSON mirrors one entry of the JSON array requested from the model.
type postJSON struct {
	Text         string   `json:"text"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action"`
	URL          string   `json:"url"`
}

// Generate returns exactly req.RequestedCount posts of req.PostType, in a
// stable order. The count must already be quota-capped by the caller.
// siteURL is the business URL embedded in text_url posts.
func (s *Stage) Generate(ctx context.Context, bc campaign.BusinessContext, req campaign.GenerationRequest, siteURL string) []campaign.DraftPost {
	n := req.RequestedCount
	if n <= 0 {
		return nil
	}

	if s.generator == nil {
		return s.fb.Posts(bc, req.PostType, n, siteURL)
	}

	entries := s.generateBatch(ctx, bc, req, siteURL)

	posts := make([]campaign.DraftPost, 0, n)
	for i := 0; i < len(entries) && i < n; i++ {
		if p, ok := s.toPost(entries[i], req.PostType, siteURL); ok {
			posts = append(posts, p)
		}
	}

	if shortfall := n - len(posts); shortfall > 0 {
		log.Warn().
			Str("post_type", string(req.PostType)).
			Int("shortfall", shortfall).
			Msg("Filling post shortfall from fallback engine")
		posts = append(posts, s.fb.Posts(bc, req.PostType, shortfall, siteURL)...)
	}

	return posts
}

// generateBatch performs the single batched model call with one retry.
// Returns nil when both attempts fail; the caller fills from fallback.
func (s *Stage) generateBatch(ctx context.Context, bc campaign.BusinessContext, req campaign.GenerationRequest, siteURL string) []postJSON {
	prompt := buildContentPrompt(bc, req, siteURL)
	temp := temperatureFor(req.CreativityLevel)

	for attempt := 1; attempt <= 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		raw, err := s.generator.GenerateText(callCtx, s.model, assets.ContentSystemPrompt, prompt, temp)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("post_type", string(req.PostType)).
				Msg("Batched content generation call failed")
			continue
		}

		entries, parseErr := jsonutil.ParseJSON[[]postJSON](raw)
		if parseErr != nil {
			log.Warn().
				Err(parseErr).
				Int("attempt", attempt).
				Msg("Content generation response did not parse")
			continue
		}

		log.Info().
			Str("post_type", string(req.PostType)).
			Int("requested", req.RequestedCount).
			Int("returned", len(entries)).
			Int("attempt", attempt).
			Msg("Batched content generation complete")
		return entries
	}

	return nil
}

// toPost converts one model entry into a DraftPost, enforcing the per-type
// content policy. Entries with empty text are dropped (the fallback fills
// the gap) so every returned post has non-empty text.
func (s *Stage) toPost(e postJSON, postType campaign.PostType, siteURL string) (campaign.DraftPost, bool) {
	text := strings.TrimSpace(e.Text)
	if text == "" {
		return campaign.DraftPost{}, false
	}

	post := campaign.DraftPost{
		ID:       campaign.NewPostID(),
		Type:     postType,
		Platform: "social",
		Text:     text,
		Hashtags: e.Hashtags,
		Generation: campaign.GenerationMeta{
			AIUsed: true,
			Model:  s.model,
		},
	}

	if postType == campaign.PostTypeTextURL {
		post.CallToAction = strings.TrimSpace(e.CallToAction)
		if post.CallToAction == "" {
			post.CallToAction = "Learn more today."
		}
		post.URL = strings.TrimSpace(e.URL)
		if post.URL == "" {
			post.URL = siteURL
		}
		if post.URL == "" {
			// A text_url post without a resolvable URL is not usable.
			return campaign.DraftPost{}, false
		}
		if !strings.Contains(post.Text, post.URL) {
			post.Text = post.Text + " " + post.URL
		}
	}

	return post, true
}

// temperatureFor maps creativity level 1-10 linearly onto 0.2-1.0.
func temperatureFor(level int) float32 {
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	return 0.2 + float32(level-1)*(0.8/9.0)
}

// buildContentPrompt assembles the batched user prompt from the business
// context and the request.
func buildContentPrompt(bc campaign.BusinessContext, req campaign.GenerationRequest, siteURL string) string {
	var sb strings.Builder

	sb.WriteString("## Post Generation Request\n\n")
	sb.WriteString(fmt.Sprintf("Write %d posts of type %q.\n", req.RequestedCount, req.PostType))
	sb.WriteString(fmt.Sprintf("Creativity level: %d of 10.\n", req.CreativityLevel))
	if siteURL != "" {
		sb.WriteString(fmt.Sprintf("Business URL for text_url posts: %s\n", siteURL))
	}

	sb.WriteString("\n## Business Context\n\n")
	sb.WriteString(fmt.Sprintf("Company: %s (%s)\n", bc.CompanyName, bc.Industry))
	sb.WriteString(fmt.Sprintf("Description: %s\n", bc.BusinessDescription))
	sb.WriteString(fmt.Sprintf("Target audience: %s\n", bc.TargetAudience))
	sb.WriteString(fmt.Sprintf("Brand voice: %s\n", bc.BrandVoice))

	if len(bc.KeyMessaging) > 0 {
		sb.WriteString("Key messaging:\n")
		for _, m := range bc.KeyMessaging {
			sb.WriteString(fmt.Sprintf("- %s\n", m))
		}
	}
	if len(bc.CompetitiveAdvantages) > 0 {
		sb.WriteString("Competitive advantages:\n")
		for _, a := range bc.CompetitiveAdvantages {
			sb.WriteString(fmt.Sprintf("- %s\n", a))
		}
	}

	g := bc.CampaignGuidance
	sb.WriteString("\n## Campaign Guidance\n\n")
	if g.CreativeDirection != "" {
		sb.WriteString(fmt.Sprintf("Creative direction: %s\n", g.CreativeDirection))
	}
	if len(g.SuggestedThemes) > 0 {
		sb.WriteString(fmt.Sprintf("Themes: %s\n", strings.Join(g.SuggestedThemes, ", ")))
	}
	if len(g.SuggestedTags) > 0 {
		sb.WriteString(fmt.Sprintf("Preferred tags: %s\n", strings.Join(g.SuggestedTags, ", ")))
	}

	sb.WriteString(fmt.Sprintf("\nRespond with a JSON array of exactly %d entries as instructed.\n", req.RequestedCount))
	return sb.String()
}
