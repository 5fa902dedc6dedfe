// Package visual generates and validates images and videos for draft posts.
// Each post goes through a bounded generate-validate-correct loop: a visual
// asset is produced from an enhanced prompt, scored by a validation model,
// and regenerated with the validator's feedback folded into the prompt until
// it passes or the iteration budget runs out, at which point a deterministic
// placeholder takes its place. The orchestrator never returns an error for a
// post — failures are annotated on the post itself.
package visual

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/fpang/campaign-engine/internal/assetcache"
	"github.com/fpang/campaign-engine/internal/assetstore"
	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/fallback"
)

// Generator produces a visual asset from an enhanced prompt. ImageClient and
// VideoClient both satisfy it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*GeneratedAsset, error)
	Model() string
}

// Outcome summarizes how one post's asset was produced, for campaign-level
// accounting.
type Outcome struct {
	Accepted   bool
	Cached     bool
	Fallback   bool
	Iterations int
	ModelCalls int
	FinalScore int
}

// attemptResult is what one deduplicated generate-validate-store pass yields.
type attemptResult struct {
	assetURL   string
	validation *campaign.ValidationResult
}

// Orchestrator runs the visual generation loop for a campaign. One instance
// serves all posts of the campaign concurrently; the cache and singleflight
// group ensure identical prompts hit the model at most once.
type Orchestrator struct {
	campaignID    string
	generators    map[campaign.PostType]Generator
	validator     *Validator
	cache         *assetcache.Cache
	store         assetstore.Store
	fb            *fallback.Engine
	maxIterations int

	flight singleflight.Group
}

// NewOrchestrator wires the generation loop. generators maps each visual post
// type to its model client; a nil map entry means that type goes straight to
// fallback.
func NewOrchestrator(campaignID string, generators map[campaign.PostType]Generator, validator *Validator, cache *assetcache.Cache, store assetstore.Store, maxIterations int) *Orchestrator {
	return &Orchestrator{
		campaignID:    campaignID,
		generators:    generators,
		validator:     validator,
		cache:         cache,
		store:         store,
		fb:            fallback.New(),
		maxIterations: maxIterations,
	}
}

// Process produces the visual asset for one post, mutating the post in place.
// It never returns an error to the caller; every failure path ends in a
// schema-complete post carrying a fallback asset and an error annotation.
func (o *Orchestrator) Process(ctx context.Context, post *campaign.DraftPost, bc *campaign.BusinessContext) *Outcome {
	startTime := time.Now()
	outcome := &Outcome{}

	gen := o.generators[post.Type]
	if gen == nil || o.validator == nil {
		log.Info().
			Str("post_id", post.ID).
			Str("post_type", string(post.Type)).
			Msg("No generator configured, using fallback asset")
		o.applyFallback(ctx, post, bc, "", "visual generation not configured")
		outcome.Fallback = true
		return outcome
	}

	// Validator feedback accumulates per post; the shared guidance is never
	// mutated.
	guidance := bc.CampaignGuidance
	guidance.ValidationFeedback = append([]string(nil), guidance.ValidationFeedback...)

	state := StatePending
	var lastFingerprint assetcache.Fingerprint
	var failure string

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		prompt := BuildEnhancedPrompt(post, bc, &guidance)
		fp := assetcache.NewFingerprint(prompt, gen.Model(), o.campaignID)
		lastFingerprint = fp

		if entry, ok := o.cache.Lookup(fp); ok && entry.IsCurrent {
			log.Info().
				Str("post_id", post.ID).
				Str("fingerprint", fp.Short()).
				Bool("fallback", entry.Fallback).
				Msg("Reusing cached asset")
			o.attach(post, entry.AssetURL)
			outcome.Cached = true
			if entry.Fallback {
				// A cached placeholder stays a placeholder; it is never
				// relabeled as validated model output.
				post.Generation = campaign.GenerationMeta{CacheHit: true, Fallback: true}
				post.Error = "visual generation fell back to placeholder: reused cached placeholder"
				outcome.Fallback = true
				return outcome
			}
			post.Generation = campaign.GenerationMeta{AIUsed: true, Model: gen.Model(), CacheHit: true}
			post.Validation = &campaign.ValidationResult{Valid: true, OverallScore: entry.Score}
			outcome.Accepted = true
			outcome.FinalScore = entry.Score
			return outcome
		}

		outcome.Iterations = iteration
		res, calls, err := o.attempt(ctx, fp, prompt, post, bc)
		outcome.ModelCalls += calls

		if err != nil {
			state = mustNext(state, EventGenerateFailed, post.ID)
			failure = err.Error()
			log.Warn().
				Err(err).
				Str("post_id", post.ID).
				Int("iteration", iteration).
				Msg("Asset generation failed")
		} else {
			state = mustNext(state, EventGenerated, post.ID)
			if res.validation.Valid {
				state = mustNext(state, EventAccepted, post.ID)
				o.attach(post, res.assetURL)
				post.Generation = campaign.GenerationMeta{AIUsed: true, Model: gen.Model(), Iteration: iteration}
				post.Validation = res.validation
				outcome.Accepted = true
				outcome.FinalScore = res.validation.OverallScore
				log.Info().
					Str("post_id", post.ID).
					Int("iteration", iteration).
					Int("score", res.validation.OverallScore).
					Dur("duration", time.Since(startTime)).
					Msg("Asset accepted")
				return outcome
			}

			state = mustNext(state, EventRejected, post.ID)
			failure = fmt.Sprintf("asset rejected with score %d", res.validation.OverallScore)
			guidance.ValidationFeedback = append(guidance.ValidationFeedback, res.validation.Recommendations...)
			post.Validation = res.validation
			outcome.FinalScore = res.validation.OverallScore
			log.Info().
				Str("post_id", post.ID).
				Int("iteration", iteration).
				Int("score", res.validation.OverallScore).
				Int("threshold", o.validator.Threshold()).
				Msg("Asset rejected, regenerating with feedback")
		}

		if iteration < o.maxIterations {
			state = mustNext(state, EventIterationsLeft, post.ID)
		} else {
			state = mustNext(state, EventExhausted, post.ID)
		}
	}

	log.Warn().
		Str("post_id", post.ID).
		Int("iterations", o.maxIterations).
		Str("reason", failure).
		Msg("Iteration budget exhausted, using fallback asset")
	o.applyFallback(ctx, post, bc, lastFingerprint, failure)
	outcome.Fallback = true
	return outcome
}

// attempt runs one generate-validate-store pass, deduplicated across
// concurrent posts that arrive at the same fingerprint. Returns the number of
// model invocations this caller is charged for: the caller whose goroutine
// executed the flight is charged one, waiters that shared the result zero.
func (o *Orchestrator) attempt(ctx context.Context, fp assetcache.Fingerprint, prompt string, post *campaign.DraftPost, bc *campaign.BusinessContext) (*attemptResult, int, error) {
	// singleflight runs the function on the first caller's goroutine, so this
	// flag is set only for the caller that actually invoked the model. The
	// shared return cannot distinguish executor from waiter.
	executed := false
	v, err, _ := o.flight.Do(string(fp), func() (any, error) {
		executed = true
		gen := o.generators[post.Type]

		asset, err := gen.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}

		validation := o.validator.Validate(ctx, asset, post, bc)

		url, err := o.persist(ctx, fp, asset)
		if err != nil {
			return nil, fmt.Errorf("failed to store asset: %w", err)
		}

		// Accepted assets become the current cache entry; rejected ones are
		// kept in the historical tier for audit.
		o.cache.Store(assetcache.Entry{
			Fingerprint: fp,
			AssetURL:    url,
			IsCurrent:   validation.Valid,
			Score:       validation.OverallScore,
		})

		return &attemptResult{assetURL: url, validation: validation}, nil
	})

	calls := 0
	if executed {
		calls = 1
	}
	if err != nil {
		return nil, calls, err
	}
	return v.(*attemptResult), calls, nil
}

// persist writes the asset's bytes to the store, or passes through the remote
// URI for assets the model hosts itself.
func (o *Orchestrator) persist(ctx context.Context, fp assetcache.Fingerprint, asset *GeneratedAsset) (string, error) {
	if len(asset.Data) == 0 {
		if asset.URI == "" {
			return "", fmt.Errorf("generated asset carries neither data nor a URI")
		}
		return asset.URI, nil
	}
	return o.store.Put(ctx, o.campaignID+"/"+fp.Short(), asset.Data, asset.MIMEType)
}

// applyFallback attaches the deterministic placeholder asset and annotates
// the post. The placeholder is cached under the last fingerprint so repeated
// requests stay stable.
func (o *Orchestrator) applyFallback(ctx context.Context, post *campaign.DraftPost, bc *campaign.BusinessContext, fp assetcache.Fingerprint, reason string) {
	data, contentType, err := o.fb.Asset(*bc, post.Type)
	if err != nil {
		// Placeholder rendering is deterministic and should not fail; keep
		// the post schema-complete regardless.
		post.Error = "fallback asset unavailable: " + err.Error()
		post.Generation = campaign.GenerationMeta{Fallback: true}
		return
	}

	key := o.campaignID + "/fallback-" + post.ID
	if fp != "" {
		key = o.campaignID + "/" + fp.Short()
	}
	url, err := o.store.Put(ctx, key, data, contentType)
	if err != nil {
		post.Error = "fallback asset unavailable: " + err.Error()
		post.Generation = campaign.GenerationMeta{Fallback: true}
		return
	}

	if fp != "" {
		o.cache.Store(assetcache.Entry{
			Fingerprint: fp,
			AssetURL:    url,
			IsCurrent:   true,
			Fallback:    true,
		})
	}
	o.attach(post, url)
	post.Generation = campaign.GenerationMeta{Fallback: true}
	if reason != "" {
		post.Error = "visual generation fell back to placeholder: " + reason
	}
}

// attach sets the asset URL field matching the post type. Video fallbacks get
// a poster image, so a PNG URL on a video post is expected.
func (o *Orchestrator) attach(post *campaign.DraftPost, url string) {
	if post.Type == campaign.PostTypeTextVideo {
		post.VideoURL = url
		return
	}
	post.ImageURL = url
}

// mustNext advances the attempt state machine, logging rather than failing on
// an illegal transition since the loop structure prevents them.
func mustNext(s AttemptState, ev AttemptEvent, postID string) AttemptState {
	next, err := s.Next(ev)
	if err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("Illegal attempt state transition")
		return s
	}
	return next
}
