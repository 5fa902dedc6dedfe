// Package fallback synthesizes deterministic, context-flavored stand-ins
// for every output shape the pipeline produces: a BusinessContext, draft
// posts, and placeholder visual assets. It makes no network calls, so the
// pipeline always terminates with a complete result set even with no model
// credentials at all. Fallback output satisfies the same schema as the
// genuine path; consumers distinguish it only by the ai_used/fallback
// metadata flags.
package fallback

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/campaign-engine/internal/campaign"
)

// Engine produces deterministic stand-in content.
type Engine struct{}

// New creates a fallback Engine.
func New() *Engine {
	return &Engine{}
}

// BusinessContext builds a synthetic context from the user's literal
// description and objective. It has no external dependencies and cannot
// fail — this is the campaign's last line of defense.
func (e *Engine) BusinessContext(description, objective, targetAudience string) campaign.BusinessContext {
	log.Info().Msg("Producing fallback business context")

	name := guessCompanyName(description)
	audience := targetAudience
	if audience == "" {
		audience = "customers interested in " + lowerFirst(firstSentence(description))
	}

	return campaign.BusinessContext{
		CompanyName:         name,
		Industry:            "general",
		BusinessDescription: description,
		TargetAudience:      audience,
		BrandVoice:          "friendly and professional",
		KeyMessaging: []string{
			"Quality you can rely on",
			firstSentence(description),
			"Built around " + audience,
		},
		CompetitiveAdvantages: []string{"customer focus", "consistent quality"},
		ProductContext: campaign.ProductContext{
			PrimaryProducts:  []string{firstSentence(description)},
			VisualThemes:     []string{"clean", "modern"},
			ColorPalette:     []string{"#2D6CDF", "#F4F6FB", "#1B2A4A"},
			DesignStyle:      "minimal",
			BrandPersonality: "approachable",
		},
		CampaignGuidance: campaign.CampaignGuidance{
			SuggestedThemes:   []string{objective, "brand awareness"},
			SuggestedTags:     defaultTags(name),
			CreativeDirection: fmt.Sprintf("Showcase %s with a clear, benefit-led message supporting: %s", name, objective),
			VisualStyle:       "clean composition, brand colors, minimal clutter",
			MediaTuning:       "soft natural lighting, uncluttered background",
		},
		AnalysisConfidence: campaign.ConfidenceLow,
		AIUsed:             false,
	}
}

// Posts produces n schema-complete draft posts of the given type, flavored
// with the business context. Deterministic: the same inputs produce the
// same posts, varied only by index.
func (e *Engine) Posts(bc campaign.BusinessContext, postType campaign.PostType, n int, siteURL string) []campaign.DraftPost {
	if n <= 0 {
		return nil
	}

	log.Info().
		Str("post_type", string(postType)).
		Int("count", n).
		Msg("Producing fallback posts")

	hooks := []string{
		"Discover what %s can do for you.",
		"Why people choose %s:",
		"Meet %s.",
		"%s, made for you.",
		"The story behind %s.",
		"%s — built differently.",
	}

	posts := make([]campaign.DraftPost, n)
	for i := 0; i < n; i++ {
		hook := fmt.Sprintf(hooks[i%len(hooks)], bc.CompanyName)
		message := pick(bc.KeyMessaging, i)

		post := campaign.DraftPost{
			ID:       campaign.NewPostID(),
			Type:     postType,
			Platform: "social",
			Hashtags: bc.CampaignGuidance.SuggestedTags,
			Generation: campaign.GenerationMeta{
				AIUsed:   false,
				Fallback: true,
			},
		}

		switch postType {
		case campaign.PostTypeTextURL:
			cta := "Learn more today."
			url := siteURL
			if url == "" {
				url = "https://example.com/" + slug(bc.CompanyName)
			}
			post.Text = fmt.Sprintf("%s %s %s %s", hook, message, cta, url)
			post.CallToAction = cta
			post.URL = url
		default:
			post.Text = fmt.Sprintf("%s %s", hook, message)
		}

		posts[i] = post
	}
	return posts
}

// pick returns items[i mod len], or a generic line for an empty slice.
func pick(items []string, i int) string {
	if len(items) == 0 {
		return "Quality you can count on."
	}
	return items[i%len(items)]
}

// guessCompanyName takes the leading capitalized words of the description
// as a stand-in company name, falling back to a generic label.
func guessCompanyName(description string) string {
	words := strings.Fields(description)
	var name []string
	for _, w := range words {
		r := []rune(w)
		if len(r) == 0 || !(r[0] >= 'A' && r[0] <= 'Z') {
			break
		}
		name = append(name, strings.Trim(w, ".,;:!?"))
		if len(name) == 3 {
			break
		}
	}
	if len(name) == 0 {
		return "Your Business"
	}
	return strings.Join(name, " ")
}

// firstSentence returns the text up to the first period, capped at 120 chars.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "."); idx > 0 {
		s = s[:idx]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	if s == "" {
		return "what we offer"
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func defaultTags(name string) []string {
	base := []string{slug(name), "smallbusiness", "local"}
	out := base[:0]
	for _, t := range base {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// slug lowercases and strips a name down to tag-safe characters.
func slug(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
