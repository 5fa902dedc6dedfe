package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fpang/campaign-engine/internal/analysis"
	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/config"
	"github.com/fpang/campaign-engine/internal/fallback"
	"github.com/fpang/campaign-engine/internal/quota"
	"github.com/fpang/campaign-engine/internal/textgen"
)

type memStore struct {
	mu   sync.Mutex
	puts int
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	return "mem://" + key, nil
}

func testConfig() config.Config {
	return config.Config{
		Env: "test",
		Quota: config.Quota{
			MaxTextURLPosts: 10,
			MaxImagePosts:   4,
			MaxVideoPosts:   2,
		},
		Validation: config.Validation{
			MaxIterations:  3,
			ScoreThreshold: 75,
		},
	}
}

// fallbackEngine builds an engine with no AI wired at all; every stage runs
// its deterministic path.
func fallbackEngine(cfg config.Config) (*Engine, *memStore) {
	fb := fallback.New()
	store := &memStore{}
	deps := Deps{
		Analysis: analysis.New(nil, nil, fb, "test-model", time.Second),
		TextGen:  textgen.New(nil, fb, "test-model", time.Second),
		Quota:    quota.New(cfg.Quota),
		Store:    store,
	}
	return NewEngine(cfg, deps), store
}

func TestRun_FallbackCampaignIsComplete(t *testing.T) {
	engine, store := fallbackEngine(testConfig())

	result, err := engine.Run(context.Background(), Request{
		Description:  "Acme Tools sells hand tools.",
		Objective:    "awareness",
		TextURLPosts: 2,
		ImagePosts:   2,
		VideoPosts:   1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CampaignID == "" {
		t.Error("campaign ID must be set")
	}
	if len(result.Posts) != 5 {
		t.Fatalf("expected 5 posts, got %d", len(result.Posts))
	}

	for i, p := range result.Posts {
		if p.ID == "" || p.Text == "" {
			t.Errorf("post %d is not schema-complete: %+v", i, p)
		}
		if p.Type == campaign.PostTypeTextImage && p.ImageURL == "" {
			t.Errorf("post %d: image post without image URL", i)
		}
		if p.Type == campaign.PostTypeTextVideo && p.VideoURL == "" {
			t.Errorf("post %d: video post without video URL", i)
		}
	}

	if result.Summary.Requested != 5 || result.Summary.Generated != 5 {
		t.Errorf("summary counts wrong: %+v", result.Summary)
	}
	if result.Summary.AIUsed {
		t.Error("no-AI run must not claim AI usage")
	}
	if result.Summary.Fallbacks != 5 {
		t.Errorf("all 5 posts should count as fallbacks, got %d", result.Summary.Fallbacks)
	}
	if result.Context.AnalysisConfidence != campaign.ConfidenceLow {
		t.Errorf("fallback context should be low confidence, got %q", result.Context.AnalysisConfidence)
	}
	if store.puts != 3 {
		t.Errorf("expected one placeholder put per visual post, got %d", store.puts)
	}
}

func TestRun_OrderIsStable(t *testing.T) {
	engine, _ := fallbackEngine(testConfig())

	result, err := engine.Run(context.Background(), Request{
		Description:  "Acme.",
		TextURLPosts: 2,
		ImagePosts:   2,
		VideoPosts:   2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []campaign.PostType{
		campaign.PostTypeTextURL, campaign.PostTypeTextURL,
		campaign.PostTypeTextImage, campaign.PostTypeTextImage,
		campaign.PostTypeTextVideo, campaign.PostTypeTextVideo,
	}
	if len(result.Posts) != len(expected) {
		t.Fatalf("expected %d posts, got %d", len(expected), len(result.Posts))
	}
	for i, p := range result.Posts {
		if p.Type != expected[i] {
			t.Errorf("post %d: expected type %s, got %s", i, expected[i], p.Type)
		}
	}
}

func TestRun_QuotaCapsRequests(t *testing.T) {
	engine, _ := fallbackEngine(testConfig())

	result, err := engine.Run(context.Background(), Request{
		Description:  "Acme.",
		TextURLPosts: 25,
		ImagePosts:   9,
		VideoPosts:   5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := map[campaign.PostType]int{}
	for _, p := range result.Posts {
		counts[p.Type]++
	}
	if counts[campaign.PostTypeTextURL] != 10 {
		t.Errorf("text posts should cap at 10, got %d", counts[campaign.PostTypeTextURL])
	}
	if counts[campaign.PostTypeTextImage] != 4 {
		t.Errorf("image posts should cap at 4, got %d", counts[campaign.PostTypeTextImage])
	}
	if counts[campaign.PostTypeTextVideo] != 2 {
		t.Errorf("video posts should cap at 2, got %d", counts[campaign.PostTypeTextVideo])
	}
}

func TestRun_PlatformLabel(t *testing.T) {
	engine, _ := fallbackEngine(testConfig())

	result, err := engine.Run(context.Background(), Request{
		Description:  "Acme.",
		Platform:     "instagram",
		TextURLPosts: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, p := range result.Posts {
		if p.Platform != "instagram" {
			t.Errorf("post %d: expected platform label, got %q", i, p.Platform)
		}
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{Description: "d", TextURLPosts: 1, CreativityLevel: 5}, false},
		{"empty description", Request{TextURLPosts: 1}, true},
		{"whitespace description", Request{Description: "  ", TextURLPosts: 1}, true},
		{"no posts requested", Request{Description: "d"}, true},
		{"negative count", Request{Description: "d", TextURLPosts: -1, ImagePosts: 2}, true},
		{"creativity defaults", Request{Description: "d", TextURLPosts: 1}, false},
		{"creativity too high", Request{Description: "d", TextURLPosts: 1, CreativityLevel: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequest_CreativityDefault(t *testing.T) {
	req := Request{Description: "d", TextURLPosts: 1}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.CreativityLevel != 5 {
		t.Errorf("unset creativity should default to 5, got %d", req.CreativityLevel)
	}
}
