package fallback

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/fpang/campaign-engine/internal/campaign"
)

func TestBusinessContext_SchemaComplete(t *testing.T) {
	e := New()
	bc := e.BusinessContext("Blue Bottle Coffee roasts specialty beans in Oakland.", "drive holiday sales", "")

	if bc.CompanyName == "" {
		t.Error("company name must not be empty")
	}
	if bc.CompanyName != "Blue Bottle Coffee" {
		t.Errorf("expected leading capitalized words as name, got %q", bc.CompanyName)
	}
	if bc.TargetAudience == "" {
		t.Error("target audience must not be empty")
	}
	if len(bc.KeyMessaging) == 0 {
		t.Error("key messaging must not be empty")
	}
	if len(bc.ProductContext.ColorPalette) == 0 {
		t.Error("color palette must not be empty")
	}
	if bc.CampaignGuidance.CreativeDirection == "" {
		t.Error("creative direction must not be empty")
	}
	if bc.AnalysisConfidence != campaign.ConfidenceLow {
		t.Errorf("fallback context must have low confidence, got %q", bc.AnalysisConfidence)
	}
	if bc.AIUsed {
		t.Error("fallback context must not claim AI was used")
	}
}

func TestBusinessContext_AudiencePassthrough(t *testing.T) {
	e := New()
	bc := e.BusinessContext("A bakery.", "", "weekend brunch crowds")
	if bc.TargetAudience != "weekend brunch crowds" {
		t.Errorf("explicit audience must pass through, got %q", bc.TargetAudience)
	}
}

func TestPosts_Deterministic(t *testing.T) {
	e := New()
	bc := e.BusinessContext("Acme Tools sells hand tools.", "awareness", "")

	a := e.Posts(bc, campaign.PostTypeTextURL, 3, "https://acme.example")
	b := e.Posts(bc, campaign.PostTypeTextURL, 3, "https://acme.example")

	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 posts each, got %d and %d", len(a), len(b))
	}
	for i := range a {
		// IDs are random; everything else must be identical.
		if a[i].Text != b[i].Text || a[i].URL != b[i].URL || a[i].CallToAction != b[i].CallToAction {
			t.Errorf("post %d differs between identical invocations", i)
		}
	}
}

func TestPosts_TextURLShape(t *testing.T) {
	e := New()
	bc := e.BusinessContext("Acme Tools sells hand tools.", "awareness", "")

	posts := e.Posts(bc, campaign.PostTypeTextURL, 2, "")
	for i, p := range posts {
		if p.Type != campaign.PostTypeTextURL {
			t.Errorf("post %d: wrong type %s", i, p.Type)
		}
		if p.CallToAction == "" {
			t.Errorf("post %d: text_url post must carry a call to action", i)
		}
		if p.URL == "" {
			t.Errorf("post %d: text_url post must carry a URL", i)
		}
		if !strings.Contains(p.Text, p.URL) {
			t.Errorf("post %d: text must include the URL", i)
		}
		if !p.Generation.Fallback || p.Generation.AIUsed {
			t.Errorf("post %d: fallback metadata flags wrong: %+v", i, p.Generation)
		}
	}
}

func TestPosts_ZeroCount(t *testing.T) {
	e := New()
	bc := e.BusinessContext("Acme.", "", "")
	if got := e.Posts(bc, campaign.PostTypeTextImage, 0, ""); got != nil {
		t.Errorf("expected nil for zero count, got %d posts", len(got))
	}
}

func TestAsset_DecodablePNG(t *testing.T) {
	e := New()
	bc := e.BusinessContext("Acme.", "", "")
	bc.ProductContext.ColorPalette = []string{"#FF0000", "#00FF00"}

	data, contentType, err := e.Asset(bc, campaign.PostTypeTextImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "image/png" {
		t.Errorf("expected image/png, got %s", contentType)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("placeholder is not a decodable PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 1200 || bounds.Dy() != 628 {
		t.Errorf("expected 1200x628, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Corner pixel carries the first palette color.
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xFF || g>>8 != 0x00 || b>>8 != 0x00 {
		t.Errorf("expected red base fill, got (%d, %d, %d)", r>>8, g>>8, b>>8)
	}
}

func TestAsset_BadPaletteFallsBackToDefaults(t *testing.T) {
	e := New()
	bc := e.BusinessContext("Acme.", "", "")
	bc.ProductContext.ColorPalette = []string{"not-a-color", "#XYZXYZ"}

	data, _, err := e.Asset(bc, campaign.PostTypeTextVideo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("placeholder with default palette is not decodable: %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"#2D6CDF", true},
		{"#abc", true},
		{"2D6CDF", false},
		{"#12345", false},
		{"#GGHHII", false},
		{"", false},
	}
	for _, tt := range tests {
		if _, ok := parseHexColor(tt.input); ok != tt.ok {
			t.Errorf("parseHexColor(%q) ok = %v, expected %v", tt.input, ok, tt.ok)
		}
	}
}
