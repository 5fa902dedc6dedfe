// Package workflow is the single entry point of the campaign pipeline. It
// chains business analysis, quota-capped text generation, and the concurrent
// visual generation fan-out into one Run call that always returns a complete
// campaign result: every stage degrades to deterministic fallbacks instead of
// failing the campaign.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/campaign-engine/internal/analysis"
	"github.com/fpang/campaign-engine/internal/assetcache"
	"github.com/fpang/campaign-engine/internal/assetstore"
	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/config"
	"github.com/fpang/campaign-engine/internal/fallback"
	"github.com/fpang/campaign-engine/internal/gemini"
	"github.com/fpang/campaign-engine/internal/metrics"
	"github.com/fpang/campaign-engine/internal/quota"
	"github.com/fpang/campaign-engine/internal/textgen"
	"github.com/fpang/campaign-engine/internal/visual"
	"github.com/fpang/campaign-engine/internal/webfetch"
)

// maxVisualConcurrency bounds how many image/video generations run at once.
const maxVisualConcurrency = 4

// postTypeOrder fixes the order in which content types appear in the result.
var postTypeOrder = []campaign.PostType{
	campaign.PostTypeTextURL,
	campaign.PostTypeTextImage,
	campaign.PostTypeTextVideo,
}

// Request describes one campaign to generate.
type Request struct {
	Description     string   `json:"description"`
	Objective       string   `json:"objective,omitempty"`
	TargetAudience  string   `json:"target_audience,omitempty"`
	URLs            []string `json:"urls,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	TextURLPosts    int      `json:"text_url_posts"`
	ImagePosts      int      `json:"image_posts"`
	VideoPosts      int      `json:"video_posts"`
	CreativityLevel int      `json:"creativity_level"`
}

// Validate checks the request is runnable.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("business description is required")
	}
	if r.TextURLPosts < 0 || r.ImagePosts < 0 || r.VideoPosts < 0 {
		return fmt.Errorf("requested counts must be non-negative")
	}
	if r.TextURLPosts+r.ImagePosts+r.VideoPosts == 0 {
		return fmt.Errorf("at least one post must be requested")
	}
	if r.CreativityLevel == 0 {
		r.CreativityLevel = 5
	}
	if r.CreativityLevel < 1 || r.CreativityLevel > 10 {
		return fmt.Errorf("creativity level must be between 1 and 10")
	}
	return nil
}

func (r *Request) requested(t campaign.PostType) int {
	switch t {
	case campaign.PostTypeTextURL:
		return r.TextURLPosts
	case campaign.PostTypeTextImage:
		return r.ImagePosts
	case campaign.PostTypeTextVideo:
		return r.VideoPosts
	}
	return 0
}

// Deps are the stage implementations an Engine runs on. Tests inject fakes
// here; production wiring comes from Build.
type Deps struct {
	Analysis   *analysis.Stage
	TextGen    *textgen.Stage
	Quota      *quota.Controller
	Store      assetstore.Store
	Validator  *visual.Validator
	Generators map[campaign.PostType]visual.Generator
}

// Engine executes campaign workflows. Safe for concurrent use; each Run gets
// its own campaign-scoped asset cache and orchestrator.
type Engine struct {
	cfg  config.Config
	deps Deps
}

// NewEngine creates an engine from explicit dependencies.
func NewEngine(cfg config.Config, deps Deps) *Engine {
	return &Engine{cfg: cfg, deps: deps}
}

// Build wires a production engine from configuration. Without an API key the
// engine still works, producing deterministic fallback campaigns.
func Build(ctx context.Context, cfg config.Config) (*Engine, error) {
	fb := fallback.New()
	fetcher := webfetch.New(webfetch.Options{
		Timeout:       cfg.Fetch.Timeout,
		MaxConcurrent: cfg.Fetch.MaxConcurrent,
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
		UserAgent:     cfg.Fetch.UserAgent,
	})

	var textClient *gemini.Client
	if cfg.Gemini.Configured() {
		c, err := gemini.NewClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		textClient = c
	} else {
		log.Warn().Msg("No Gemini API key configured, all campaigns will use the fallback path")
	}

	store, err := buildStore(ctx, cfg.Assets)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Analysis: analysis.New(fetcher, textGeneratorOrNil(textClient), fb, cfg.Gemini.TextModel, cfg.Gemini.AnalysisTimeout),
		TextGen:  textgen.New(textGeneratorOrNil(textClient), fb, cfg.Gemini.TextModel, cfg.Gemini.TextTimeout),
		Quota:    quota.New(cfg.Quota),
		Store:    store,
	}

	if textClient != nil {
		deps.Validator = visual.NewValidator(textClient, cfg.Gemini.ValidationModel, cfg.Validation.ScoreThreshold, cfg.Gemini.TextTimeout)
		deps.Generators = map[campaign.PostType]visual.Generator{
			campaign.PostTypeTextImage: visual.NewImageClient(cfg.Gemini.APIKey, cfg.Gemini.ImageModel, cfg.Gemini.ImageTimeout),
			campaign.PostTypeTextVideo: visual.NewVideoClient(cfg.Gemini.APIKey, cfg.Gemini.VideoModel, cfg.Gemini.VideoTimeout),
		}
	}

	return NewEngine(cfg, deps), nil
}

// textGeneratorOrNil avoids a typed-nil interface when no client exists.
func textGeneratorOrNil(c *gemini.Client) analysis.TextGenerator {
	if c == nil {
		return nil
	}
	return c
}

func buildStore(ctx context.Context, cfg config.Assets) (assetstore.Store, error) {
	switch cfg.Mode {
	case "s3":
		return assetstore.NewS3(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.PublicBaseURL)
	case "local", "":
		return assetstore.NewLocal(cfg.LocalDir, cfg.PublicBaseURL), nil
	}
	return nil, fmt.Errorf("unknown asset store mode %q", cfg.Mode)
}

// Run executes one campaign workflow end to end. It only errors on an invalid
// request; every downstream failure is absorbed into the result as fallback
// content and per-post error annotations.
func (e *Engine) Run(ctx context.Context, req Request) (campaign.Result, error) {
	if err := req.Validate(); err != nil {
		return campaign.Result{}, err
	}

	startTime := time.Now()
	campaignID := campaign.NewCampaignID()
	rec := metrics.New("CampaignEngine").
		Dimension("env", e.cfg.Env).
		Property("campaign_id", campaignID)
	defer rec.Flush()

	log.Info().
		Str("campaign_id", campaignID).
		Int("urls", len(req.URLs)).
		Int("text_url_posts", req.TextURLPosts).
		Int("image_posts", req.ImagePosts).
		Int("video_posts", req.VideoPosts).
		Msg("Starting campaign workflow")

	bc := e.deps.Analysis.Run(ctx, analysis.Input{
		Description:    req.Description,
		Objective:      req.Objective,
		TargetAudience: req.TargetAudience,
		URLs:           req.URLs,
	})

	siteURL := ""
	if len(req.URLs) > 0 {
		siteURL = req.URLs[0]
	}

	posts := e.generateText(ctx, bc, req, campaignID, siteURL, rec)
	e.generateVisuals(ctx, posts, &bc, campaignID, rec)

	result := campaign.Result{
		CampaignID: campaignID,
		Context:    bc,
		Posts:      posts,
		Summary:    summarize(req, bc, posts, rec, time.Since(startTime)),
	}

	rec.Timing("WorkflowDuration", result.Summary.Elapsed).
		Metric("PostsGenerated", float64(result.Summary.Generated), metrics.UnitCount)

	log.Info().
		Str("campaign_id", campaignID).
		Int("posts", len(posts)).
		Int("fallbacks", result.Summary.Fallbacks).
		Int("cache_hits", result.Summary.CacheHits).
		Dur("duration", result.Summary.Elapsed).
		Msg("Campaign workflow complete")

	return result, nil
}

// generateText produces the quota-capped post texts for every requested type,
// in the fixed type order.
func (e *Engine) generateText(ctx context.Context, bc campaign.BusinessContext, req Request, campaignID, siteURL string, rec *metrics.Recorder) []campaign.DraftPost {
	var posts []campaign.DraftPost
	for _, t := range postTypeOrder {
		requested := req.requested(t)
		if requested == 0 {
			continue
		}
		allowed := e.deps.Quota.Allow(t, requested)
		if allowed < requested {
			rec.Add("QuotaCapped", float64(requested-allowed))
		}

		batch := e.deps.TextGen.Generate(ctx, bc, campaign.GenerationRequest{
			PostType:        t,
			RequestedCount:  allowed,
			CreativityLevel: req.CreativityLevel,
			CampaignID:      campaignID,
		}, siteURL)

		for i := range batch {
			if req.Platform != "" {
				batch[i].Platform = req.Platform
			}
		}
		posts = append(posts, batch...)
	}
	return posts
}

// generateVisuals runs the image/video fan-out. Goroutines write into their
// own slice index, so result order matches text generation order regardless
// of completion order.
func (e *Engine) generateVisuals(ctx context.Context, posts []campaign.DraftPost, bc *campaign.BusinessContext, campaignID string, rec *metrics.Recorder) {
	orch := visual.NewOrchestrator(
		campaignID,
		e.deps.Generators,
		e.deps.Validator,
		assetcache.New(campaignID),
		e.deps.Store,
		e.cfg.Validation.MaxIterations,
	)

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxVisualConcurrency)

	for i := range posts {
		if !posts[i].Type.Visual() {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := orch.Process(ctx, &posts[i], bc)

			rec.Add("VisualModelCalls", float64(outcome.ModelCalls))
			if outcome.Cached {
				rec.Count("AssetCacheHits")
			}
			if outcome.Fallback {
				rec.Count("VisualFallbacks")
			}
		}(i)
	}
	wg.Wait()
}

func summarize(req Request, bc campaign.BusinessContext, posts []campaign.DraftPost, rec *metrics.Recorder, elapsed time.Duration) campaign.Summary {
	s := campaign.Summary{
		Requested:  req.TextURLPosts + req.ImagePosts + req.VideoPosts,
		Generated:  len(posts),
		ModelCalls: int(rec.Value("VisualModelCalls")),
		AIUsed:     bc.AIUsed,
		Elapsed:    elapsed,
	}
	for i := range posts {
		if posts[i].Generation.Fallback {
			s.Fallbacks++
		}
		if posts[i].Generation.CacheHit {
			s.CacheHits++
		}
		if posts[i].Generation.AIUsed {
			s.AIUsed = true
		}
	}
	return s
}
