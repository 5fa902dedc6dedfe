package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/fallback"
	"github.com/fpang/campaign-engine/internal/webfetch"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, model, system, prompt string, temperature float32) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.response, f.err
}

type fakeFetcher struct {
	results []webfetch.PageResult
}

func (f *fakeFetcher) Fetch(ctx context.Context, urls []string) []webfetch.PageResult {
	return f.results
}

func newStage(gen TextGenerator, fetcher ContentFetcher) *Stage {
	return New(fetcher, gen, fallback.New(), "test-model", 5*time.Second)
}

const cleanResponse = `{
	"company_name": "Blue Bottle",
	"industry": "specialty coffee",
	"business_description": "Coffee roastery",
	"target_audience": "coffee enthusiasts",
	"brand_voice": "warm and expert",
	"key_messaging": ["freshness first"],
	"competitive_advantages": ["single origin sourcing"],
	"product_context": {"design_style": "minimal"},
	"campaign_guidance": {"creative_direction": "show the pour"}
}`

func TestRun_CleanParse(t *testing.T) {
	gen := &fakeGenerator{response: cleanResponse}
	fetcher := &fakeFetcher{results: []webfetch.PageResult{
		{URL: "https://a.example", Text: "we roast coffee"},
	}}

	bc := newStage(gen, fetcher).Run(context.Background(), Input{
		Description: "A coffee roastery.",
		Objective:   "awareness",
		URLs:        []string{"https://a.example"},
	})

	if bc.CompanyName != "Blue Bottle" {
		t.Errorf("expected parsed company name, got %q", bc.CompanyName)
	}
	if !bc.AIUsed {
		t.Error("clean parse must set AIUsed")
	}
	if bc.AnalysisConfidence != campaign.ConfidenceHigh {
		t.Errorf("clean parse with scrapes should be high confidence, got %q", bc.AnalysisConfidence)
	}
	if bc.SuccessfulScrapes != 1 {
		t.Errorf("expected 1 successful scrape, got %d", bc.SuccessfulScrapes)
	}
}

func TestRun_MalformedResponseSalvaged(t *testing.T) {
	// Braces balance but the body does not decode, so salvage runs.
	gen := &fakeGenerator{response: `{"company_name": "Acme Robotics", "industry": "robotics", "key_messaging": ["precision"],}`}

	bc := newStage(gen, &fakeFetcher{}).Run(context.Background(), Input{
		Description: "Robots.",
		Objective:   "leads",
	})

	if bc.CompanyName != "Acme Robotics" {
		t.Errorf("salvage should recover company_name, got %q", bc.CompanyName)
	}
	if bc.Industry != "robotics" {
		t.Errorf("salvage should recover industry, got %q", bc.Industry)
	}
	if len(bc.KeyMessaging) != 1 || bc.KeyMessaging[0] != "precision" {
		t.Errorf("salvage should recover key_messaging, got %v", bc.KeyMessaging)
	}
	if !bc.AIUsed {
		t.Error("a usable salvage still counts as AI-derived")
	}
	// Salvage is not a clean parse; with zero scrapes that means low.
	if bc.AnalysisConfidence != campaign.ConfidenceLow {
		t.Errorf("expected low confidence, got %q", bc.AnalysisConfidence)
	}
}

func TestRun_NonJSONResponseFallsBack(t *testing.T) {
	gen := &fakeGenerator{response: "I am unable to help with that."}

	bc := newStage(gen, &fakeFetcher{}).Run(context.Background(), Input{
		Description: "Candle Co makes candles.",
		Objective:   "sales",
	})

	if bc.AIUsed {
		t.Error("fallback context must not claim AI")
	}
	if bc.CompanyName == "" {
		t.Error("fallback context must still be schema-complete")
	}
}

func TestRun_GeneratorErrorFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}

	bc := newStage(gen, &fakeFetcher{}).Run(context.Background(), Input{
		Description: "A gym.",
	})

	if bc.AIUsed {
		t.Error("model failure must degrade to fallback, not error")
	}
}

func TestRun_NilGenerator(t *testing.T) {
	bc := newStage(nil, &fakeFetcher{}).Run(context.Background(), Input{
		Description: "A gym.",
	})

	if bc.AIUsed {
		t.Error("nil generator must take the fallback path")
	}
	if bc.AnalysisConfidence != campaign.ConfidenceLow {
		t.Errorf("expected low confidence, got %q", bc.AnalysisConfidence)
	}
}

func TestRun_AllScrapesFailedStillAnalyzes(t *testing.T) {
	gen := &fakeGenerator{response: cleanResponse}
	fetcher := &fakeFetcher{results: []webfetch.PageResult{
		{URL: "https://down.example", Err: "status 503"},
		{URL: "https://gone.example", Err: "connection refused"},
	}}

	bc := newStage(gen, fetcher).Run(context.Background(), Input{
		Description: "A coffee roastery.",
		URLs:        []string{"https://down.example", "https://gone.example"},
	})

	if gen.calls != 1 {
		t.Fatalf("analysis must still run on the description alone, calls = %d", gen.calls)
	}
	if !strings.Contains(gen.prompt, "No web content was reachable") {
		t.Error("prompt should note the missing web content")
	}
	if bc.SuccessfulScrapes != 0 {
		t.Errorf("expected 0 successful scrapes, got %d", bc.SuccessfulScrapes)
	}
	// Clean parse but no source material caps confidence at medium.
	if bc.AnalysisConfidence != campaign.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %q", bc.AnalysisConfidence)
	}
}

func TestBuildAnalysisPrompt_CapsPageText(t *testing.T) {
	long := strings.Repeat("x", 20000)
	prompt := buildAnalysisPrompt(Input{Description: "d", Objective: "o"}, []webfetch.PageResult{
		{URL: "https://a.example", Text: long},
	})

	if len(prompt) > 10000 {
		t.Errorf("page text should be capped, prompt length %d", len(prompt))
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		parsed   bool
		scrapes  int
		expected string
	}{
		{true, 2, campaign.ConfidenceHigh},
		{true, 0, campaign.ConfidenceMedium},
		{false, 1, campaign.ConfidenceMedium},
		{false, 0, campaign.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := confidence(tt.parsed, tt.scrapes); got != tt.expected {
			t.Errorf("confidence(%v, %d) = %q, expected %q", tt.parsed, tt.scrapes, got, tt.expected)
		}
	}
}
