// Package assetcache is a content-addressed store mapping a generation
// fingerprint to a previously produced asset, scoped to one campaign.
// Entries live in two tiers: the "current" entry for a fingerprint is the
// one lookups prefer; prior entries are demoted to historical on overwrite
// and retained for audit, never deleted. The cache holds no generation
// logic — it is pure lookup and write.
package assetcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Fingerprint is the deterministic cache key for one generation:
// hash(enhanced prompt, model ID, campaign ID). Identical fingerprints mean
// the cached asset is eligible for reuse without re-invoking the model.
type Fingerprint string

// NewFingerprint derives the cache key from the generation inputs.
func NewFingerprint(enhancedPrompt, modelID, campaignID string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(enhancedPrompt))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(campaignID))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Short returns a truncated fingerprint for log readability.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Entry is one cached asset record. Score is the validation score the asset
// carried when it was stored; Fallback marks a deterministic placeholder, so
// reuse paths never present it as validated model output.
type Entry struct {
	Fingerprint Fingerprint
	AssetURL    string
	IsCurrent   bool
	Score       int
	Fallback    bool
	CreatedAt   time.Time
}

// Cache is a per-campaign fingerprint-to-asset store. It is safe for
// concurrent use; the store path holds one mutex across demote+insert so
// there is never a window with no current entry for a stored fingerprint.
type Cache struct {
	campaignID string

	mu         sync.Mutex
	current    map[Fingerprint]*Entry
	historical map[Fingerprint][]*Entry
	now        func() time.Time
}

// New creates an empty cache scoped to one campaign. Keys are never shared
// across campaigns; each campaign invocation builds its own Cache.
func New(campaignID string) *Cache {
	return &Cache{
		campaignID: campaignID,
		current:    make(map[Fingerprint]*Entry),
		historical: make(map[Fingerprint][]*Entry),
		now:        time.Now,
	}
}

// Lookup returns the cached entry for a fingerprint, preferring the current
// tier. When only historical entries exist the newest one is returned —
// the fingerprint invariant makes any entry for the key reusable.
func (c *Cache) Lookup(fp Fingerprint) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.current[fp]; ok {
		log.Debug().
			Str("campaign", c.campaignID).
			Str("fingerprint", fp.Short()).
			Msg("Asset cache hit (current)")
		cp := *e
		return &cp, true
	}

	if hist := c.historical[fp]; len(hist) > 0 {
		e := hist[len(hist)-1]
		log.Debug().
			Str("campaign", c.campaignID).
			Str("fingerprint", fp.Short()).
			Msg("Asset cache hit (historical)")
		cp := *e
		return &cp, true
	}

	return nil, false
}

// Store records an asset for a fingerprint. Idempotent under the same
// fingerprint: the last write marked current wins and the prior current
// entry is demoted to historical, not deleted. A write with IsCurrent=false
// lands directly in the historical tier. CreatedAt is set by the cache.
func (c *Cache) Store(e Entry) {
	e.CreatedAt = c.now()
	entry := &e

	c.mu.Lock()
	defer c.mu.Unlock()

	if !e.IsCurrent {
		c.historical[e.Fingerprint] = append(c.historical[e.Fingerprint], entry)
		return
	}

	if prev, ok := c.current[e.Fingerprint]; ok {
		prev.IsCurrent = false
		c.historical[e.Fingerprint] = append(c.historical[e.Fingerprint], prev)
	}
	c.current[e.Fingerprint] = entry

	log.Debug().
		Str("campaign", c.campaignID).
		Str("fingerprint", e.Fingerprint.Short()).
		Str("asset_url", e.AssetURL).
		Msg("Asset cache entry stored as current")
}

// Len returns the number of fingerprints with a current entry.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.current)
}

// History returns copies of the historical entries for a fingerprint,
// oldest first.
func (c *Cache) History(fp Fingerprint) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	hist := c.historical[fp]
	out := make([]Entry, len(hist))
	for i, e := range hist {
		out[i] = *e
	}
	return out
}
