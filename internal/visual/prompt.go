package visual

import (
	"fmt"
	"strings"

	"github.com/fpang/campaign-engine/internal/campaign"
)

// BuildEnhancedPrompt composes the full generation prompt for a visual asset:
// the post text, the campaign's creative direction, the business context, and
// any validator feedback accumulated from earlier attempts on this post. The
// result is what gets fingerprinted for caching, so identical inputs yield
// identical prompts.
func BuildEnhancedPrompt(post *campaign.DraftPost, bc *campaign.BusinessContext, guidance *campaign.CampaignGuidance) string {
	var sb strings.Builder

	switch post.Type {
	case campaign.PostTypeTextVideo:
		sb.WriteString("Create a short marketing video for a social media post.\n\n")
	default:
		sb.WriteString("Create a marketing image for a social media post.\n\n")
	}

	fmt.Fprintf(&sb, "Post text: %s\n\n", post.Text)

	fmt.Fprintf(&sb, "Company: %s (%s)\n", bc.CompanyName, bc.Industry)
	fmt.Fprintf(&sb, "Brand voice: %s\n", bc.BrandVoice)
	if bc.ProductContext.DesignStyle != "" {
		fmt.Fprintf(&sb, "Design style: %s\n", bc.ProductContext.DesignStyle)
	}
	if bc.ProductContext.BrandPersonality != "" {
		fmt.Fprintf(&sb, "Brand personality: %s\n", bc.ProductContext.BrandPersonality)
	}
	if len(bc.ProductContext.PrimaryProducts) > 0 {
		fmt.Fprintf(&sb, "Featured products: %s\n", strings.Join(bc.ProductContext.PrimaryProducts, ", "))
	}
	if len(bc.ProductContext.VisualThemes) > 0 {
		fmt.Fprintf(&sb, "Visual themes: %s\n", strings.Join(bc.ProductContext.VisualThemes, ", "))
	}
	if len(bc.ProductContext.ColorPalette) > 0 {
		fmt.Fprintf(&sb, "Color palette: %s\n", strings.Join(bc.ProductContext.ColorPalette, ", "))
	}

	if guidance != nil {
		if guidance.CreativeDirection != "" {
			fmt.Fprintf(&sb, "\nCreative direction: %s\n", guidance.CreativeDirection)
		}
		if guidance.VisualStyle != "" {
			fmt.Fprintf(&sb, "Visual style: %s\n", guidance.VisualStyle)
		}
		if guidance.MediaTuning != "" {
			fmt.Fprintf(&sb, "Media tuning: %s\n", guidance.MediaTuning)
		}
		if len(guidance.ValidationFeedback) > 0 {
			sb.WriteString("\nApply the following corrections from an earlier review:\n")
			for _, fb := range guidance.ValidationFeedback {
				fmt.Fprintf(&sb, "- %s\n", fb)
			}
		}
	}

	sb.WriteString("\nThe asset must be suitable for a professional marketing campaign. Do not include any text overlays unless the post text calls for them.")

	return sb.String()
}
