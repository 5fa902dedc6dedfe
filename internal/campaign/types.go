// Package campaign defines the data model shared by every pipeline stage:
// the structured business context extracted from web content, the draft
// posts produced by generation, and the final campaign result. The types
// here are plain data — stages own the behaviour.
package campaign

import (
	"time"

	"github.com/google/uuid"
)

// PostType identifies the kind of content a generation request produces.
type PostType string

const (
	// PostTypeTextURL is a text post with a call-to-action and link.
	PostTypeTextURL PostType = "text_url"

	// PostTypeTextImage is a short text post accompanied by a generated image.
	PostTypeTextImage PostType = "text_image"

	// PostTypeTextVideo is a short text post accompanied by a generated video.
	PostTypeTextVideo PostType = "text_video"
)

// Visual reports whether posts of this type require a generated visual asset.
func (t PostType) Visual() bool {
	return t == PostTypeTextImage || t == PostTypeTextVideo
}

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeTextURL, PostTypeTextImage, PostTypeTextVideo:
		return true
	}
	return false
}

// Analysis confidence levels. Low means the analysis ran on the bare
// description with zero successful scrapes.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ProductContext captures what the business sells and how it looks.
type ProductContext struct {
	PrimaryProducts  []string `json:"primary_products"`
	VisualThemes     []string `json:"visual_themes"`
	ColorPalette     []string `json:"color_palette"`
	DesignStyle      string   `json:"design_style"`
	BrandPersonality string   `json:"brand_personality"`
}

// CampaignGuidance carries the creative direction fed into prompt
// construction for every downstream generation call.
type CampaignGuidance struct {
	SuggestedThemes   []string `json:"suggested_themes"`
	SuggestedTags     []string `json:"suggested_tags"`
	CreativeDirection string   `json:"creative_direction"`
	VisualStyle       string   `json:"visual_style"`
	MediaTuning       string   `json:"media_tuning"`

	// ValidationFeedback accumulates validator recommendations across
	// generation attempts for one post so the next attempt's prompt can
	// self-correct. Always copied per post, never shared.
	ValidationFeedback []string `json:"validation_feedback,omitempty"`
}

// BusinessContext is the structured business intelligence extracted once per
// campaign and read by all downstream stages. Immutable after creation.
type BusinessContext struct {
	CompanyName           string           `json:"company_name"`
	Industry              string           `json:"industry"`
	BusinessDescription   string           `json:"business_description"`
	TargetAudience        string           `json:"target_audience"`
	BrandVoice            string           `json:"brand_voice"`
	KeyMessaging          []string         `json:"key_messaging"`
	CompetitiveAdvantages []string         `json:"competitive_advantages"`
	ProductContext        ProductContext   `json:"product_context"`
	CampaignGuidance      CampaignGuidance `json:"campaign_guidance"`

	// AnalysisConfidence is high/medium/low depending on how much source
	// material the analysis had to work with.
	AnalysisConfidence string `json:"analysis_confidence"`

	// SuccessfulScrapes counts the URLs that yielded usable text.
	SuccessfulScrapes int `json:"successful_scrapes"`

	// AIUsed is false when the context came from the deterministic fallback.
	AIUsed bool `json:"ai_used"`
}

// GenerationRequest asks for a number of posts of one type.
type GenerationRequest struct {
	PostType        PostType `json:"post_type"`
	RequestedCount  int      `json:"requested_count"`
	CreativityLevel int      `json:"creativity_level"` // 1-10
	CampaignID      string   `json:"campaign_id"`
}

// GenerationMeta records how a post's content and asset were produced.
type GenerationMeta struct {
	AIUsed    bool   `json:"ai_used"`
	Model     string `json:"model,omitempty"`
	Iteration int    `json:"iteration,omitempty"`
	CacheHit  bool   `json:"cache_hit,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// ValidationResult is the 0-100 quality/relevance assessment of a generated
// asset. The acceptance threshold is configuration, not part of this type.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	OverallScore    int      `json:"overall_score"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// DraftPost is one generated post. The slice of posts a stage returns is
// ordered, and index i of input maps to index i of output end-to-end.
type DraftPost struct {
	ID           string   `json:"id"`
	Type         PostType `json:"type"`
	Platform     string   `json:"platform"`
	Text         string   `json:"text"`
	Hashtags     []string `json:"hashtags"`
	URL          string   `json:"url,omitempty"`
	CallToAction string   `json:"call_to_action,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	VideoURL     string   `json:"video_url,omitempty"`

	Generation GenerationMeta    `json:"generation"`
	Validation *ValidationResult `json:"validation,omitempty"`

	// Error is a structured failure annotation; it never aborts the campaign.
	Error string `json:"error,omitempty"`
}

// Summary aggregates campaign-level metadata for the final result.
type Summary struct {
	Requested  int           `json:"requested"`
	Generated  int           `json:"generated"`
	Fallbacks  int           `json:"fallbacks"`
	CacheHits  int           `json:"cache_hits"`
	ModelCalls int           `json:"model_calls"`
	AIUsed     bool          `json:"ai_used"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Result is the finalized output of one campaign workflow invocation.
type Result struct {
	CampaignID string          `json:"campaign_id"`
	Context    BusinessContext `json:"business_context"`
	Posts      []DraftPost     `json:"posts"`
	Summary    Summary         `json:"summary"`
}

// NewCampaignID returns a fresh campaign identifier.
func NewCampaignID() string {
	return "camp-" + uuid.NewString()
}

// NewPostID returns a fresh draft post identifier.
func NewPostID() string {
	return "post-" + uuid.NewString()
}
