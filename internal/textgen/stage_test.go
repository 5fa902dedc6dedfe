package textgen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/fallback"
)

type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
	lastTemp  float32
}

func (f *fakeGenerator) GenerateText(ctx context.Context, model, system, prompt string, temperature float32) (string, error) {
	i := f.calls
	f.calls++
	f.lastTemp = temperature
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func testContext() campaign.BusinessContext {
	return fallback.New().BusinessContext("Acme Tools sells hand tools.", "awareness", "makers")
}

func newStage(gen TextGenerator) *Stage {
	return New(gen, fallback.New(), "test-model", 5*time.Second)
}

func request(t campaign.PostType, n int) campaign.GenerationRequest {
	return campaign.GenerationRequest{
		PostType:        t,
		RequestedCount:  n,
		CreativityLevel: 5,
		CampaignID:      "camp-test",
	}
}

func TestGenerate_ExactCount(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`[
		{"text": "Post one about tools", "hashtags": ["tools"]},
		{"text": "Post two about makers", "hashtags": ["makers"]},
		{"text": "Post three", "hashtags": []}
	]`}}

	posts := newStage(gen).Generate(context.Background(), testContext(), request(campaign.PostTypeTextImage, 3), "")

	if len(posts) != 3 {
		t.Fatalf("expected exactly 3 posts, got %d", len(posts))
	}
	if gen.calls != 1 {
		t.Errorf("full count should be one batched call, got %d calls", gen.calls)
	}
	for i, p := range posts {
		if !p.Generation.AIUsed {
			t.Errorf("post %d should be AI-generated", i)
		}
		if p.Text == "" {
			t.Errorf("post %d has empty text", i)
		}
	}
}

func TestGenerate_ShortfallFilledFromFallback(t *testing.T) {
	// Model returns 1 of 3 requested entries.
	gen := &fakeGenerator{responses: []string{`[{"text": "Only one post"}]`}}

	posts := newStage(gen).Generate(context.Background(), testContext(), request(campaign.PostTypeTextImage, 3), "")

	if len(posts) != 3 {
		t.Fatalf("shortfall must be filled to exactly 3, got %d", len(posts))
	}
	if !posts[0].Generation.AIUsed {
		t.Error("first post should be the model's")
	}
	if !posts[1].Generation.Fallback || !posts[2].Generation.Fallback {
		t.Error("remaining posts should be fallback-filled")
	}
}

func TestGenerate_RetryThenFallback(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("timeout"), errors.New("timeout")}}

	posts := newStage(gen).Generate(context.Background(), testContext(), request(campaign.PostTypeTextURL, 2), "https://acme.example")

	if gen.calls != 2 {
		t.Errorf("expected one retry (2 calls), got %d", gen.calls)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 fallback posts, got %d", len(posts))
	}
	for i, p := range posts {
		if !p.Generation.Fallback {
			t.Errorf("post %d should be fallback", i)
		}
	}
}

func TestGenerate_UnparseableResponseRetries(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"sorry, I cannot produce JSON",
		`[{"text": "Recovered on retry"}]`,
	}}

	posts := newStage(gen).Generate(context.Background(), testContext(), request(campaign.PostTypeTextImage, 1), "")

	if gen.calls != 2 {
		t.Errorf("parse failure should trigger a retry, got %d calls", gen.calls)
	}
	if len(posts) != 1 || posts[0].Text != "Recovered on retry" {
		t.Errorf("expected the retried post, got %+v", posts)
	}
}

func TestGenerate_NilGenerator(t *testing.T) {
	posts := newStage(nil).Generate(context.Background(), testContext(), request(campaign.PostTypeTextURL, 2), "")
	if len(posts) != 2 {
		t.Fatalf("expected 2 fallback posts, got %d", len(posts))
	}
}

func TestGenerate_ZeroCount(t *testing.T) {
	gen := &fakeGenerator{}
	posts := newStage(gen).Generate(context.Background(), testContext(), request(campaign.PostTypeTextURL, 0), "")
	if posts != nil {
		t.Errorf("expected nil for zero count, got %d posts", len(posts))
	}
	if gen.calls != 0 {
		t.Error("zero count must not call the model")
	}
}

func TestToPost_TextURLPolicy(t *testing.T) {
	s := newStage(&fakeGenerator{})

	// URL from the model is kept and appended to the text when absent.
	p, ok := s.toPost(postJSON{Text: "Great tools here", URL: "https://acme.example/sale"}, campaign.PostTypeTextURL, "https://acme.example")
	if !ok {
		t.Fatal("expected usable post")
	}
	if p.URL != "https://acme.example/sale" {
		t.Errorf("model URL should win, got %q", p.URL)
	}
	if !strings.Contains(p.Text, p.URL) {
		t.Error("URL must be embedded in the text")
	}
	if p.CallToAction == "" {
		t.Error("missing CTA must get the default")
	}

	// No model URL falls back to the site URL.
	p, ok = s.toPost(postJSON{Text: "Check us out"}, campaign.PostTypeTextURL, "https://acme.example")
	if !ok || p.URL != "https://acme.example" {
		t.Errorf("expected site URL fallback, got %+v", p)
	}

	// No URL anywhere makes the entry unusable.
	if _, ok := s.toPost(postJSON{Text: "No link at all"}, campaign.PostTypeTextURL, ""); ok {
		t.Error("text_url post without a URL must be dropped")
	}

	// Empty text is dropped regardless of type.
	if _, ok := s.toPost(postJSON{Text: "   "}, campaign.PostTypeTextImage, ""); ok {
		t.Error("empty text must be dropped")
	}
}

func TestTemperatureFor(t *testing.T) {
	if got := temperatureFor(1); got != 0.2 {
		t.Errorf("level 1 should map to 0.2, got %f", got)
	}
	if got := temperatureFor(10); got < 0.99 || got > 1.01 {
		t.Errorf("level 10 should map to 1.0, got %f", got)
	}
	mid := temperatureFor(5)
	if mid <= temperatureFor(4) || mid >= temperatureFor(6) {
		t.Error("temperature must increase monotonically with creativity")
	}
	// Out-of-range levels clamp instead of failing.
	if temperatureFor(-3) != temperatureFor(1) || temperatureFor(99) != temperatureFor(10) {
		t.Error("out-of-range creativity must clamp")
	}
}

func TestGenerate_TemperatureFollowsCreativity(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`[{"text": "hi"}]`}}
	req := request(campaign.PostTypeTextImage, 1)
	req.CreativityLevel = 10

	newStage(gen).Generate(context.Background(), testContext(), req, "")

	if gen.lastTemp < 0.99 {
		t.Errorf("creativity 10 should use temperature 1.0, got %f", gen.lastTemp)
	}
}
