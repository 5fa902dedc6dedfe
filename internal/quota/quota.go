// Package quota enforces the configured maximum generation counts per
// content type, bounding model spend before any call is made. Caps are
// static configuration, not depleting counters, so the controller is a pure
// function over its config and safe to consult from concurrent stages.
package quota

import (
	"github.com/rs/zerolog/log"

	"github.com/fpang/campaign-engine/internal/campaign"
	"github.com/fpang/campaign-engine/internal/config"
)

// Controller caps requested counts against per-type configuration.
type Controller struct {
	cfg config.Quota
}

// New creates a Controller from static configuration.
func New(cfg config.Quota) *Controller {
	return &Controller{cfg: cfg}
}

// Allow returns the capped count for a request: min(requested, configured
// max for the post type). A request at or under the cap passes through
// unchanged; exceeding the cap is not an error and is capped silently.
func (c *Controller) Allow(postType campaign.PostType, requested int) int {
	if requested <= 0 {
		return 0
	}

	max := c.Max(postType)
	if requested <= max {
		return requested
	}

	log.Info().
		Str("post_type", string(postType)).
		Int("requested", requested).
		Int("capped", max).
		Msg("Requested count exceeds quota — capping")
	return max
}

// Max returns the configured cap for a post type. Unknown types get zero.
func (c *Controller) Max(postType campaign.PostType) int {
	switch postType {
	case campaign.PostTypeTextURL:
		return c.cfg.MaxTextURLPosts
	case campaign.PostTypeTextImage:
		return c.cfg.MaxImagePosts
	case campaign.PostTypeTextVideo:
		return c.cfg.MaxVideoPosts
	}
	return 0
}
