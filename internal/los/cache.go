package los

import (
	"encoding/json"

	"sightline/internal/calc"
	"sightline/internal/result"
	"sightline/internal/scene"
)

type cacheEntry struct {
	res    result.Result
	target uint64
	bodies uint64
}

// CachedViewerLOS reuses results per target until the scene or the
// configuration changes. Obstacle mutations and viewer mutations drop every
// entry; a target mutation drops only that target's entry.
type CachedViewerLOS struct {
	*ViewerLOS
	tracker *scene.Tracker
	metrics cacheInstruments

	signature   string
	obstacles   uint64
	viewerStamp uint64
	entries     map[uint64]cacheEntry
}

// NewCached wraps l with a cache validated against tracker
func NewCached(l *ViewerLOS, tracker *scene.Tracker) *CachedViewerLOS {
	return &CachedViewerLOS{
		ViewerLOS: l,
		tracker:   tracker,
		metrics:   newCacheInstruments(l.log),
		entries:   make(map[uint64]cacheEntry),
	}
}

// Len returns the number of cached targets
func (c *CachedViewerLOS) Len() int { return len(c.entries) }

// Clear drops every entry
func (c *CachedViewerLOS) Clear() {
	c.metrics.invalidated(len(c.entries))
	clear(c.entries)
}

// SetConfig replaces the configuration and drops every entry. The lit-shape
// collaborator is not part of the signature, so a new one is only seen here.
func (c *CachedViewerLOS) SetConfig(cfg Config) {
	c.ViewerLOS.SetConfig(cfg)
	c.Clear()
}

func (c *CachedViewerLOS) PercentVisible(target *scene.Token) float64 {
	return c.Calculate(target).PercentVisible()
}

func (c *CachedViewerLOS) HasLOS(target *scene.Token) bool {
	return HasLOS(c.PercentVisible(target), c.cfg.Threshold)
}

// Calculate serves a valid cached result or calculates and stores a new
// one. Targets outside the scene (id 0) and failed results are not stored.
func (c *CachedViewerLOS) Calculate(target *scene.Token) result.Result {
	c.validate()

	if target == nil || target.ID == 0 {
		res, _ := c.calculate(target)
		return res
	}

	targetStamp := c.tracker.TokenStamp(target.ID)
	bodies := c.bodies(target.ID)
	if e, ok := c.entries[target.ID]; ok {
		if e.target == targetStamp && e.bodies == bodies {
			c.metrics.hit()
			return e.res
		}
		delete(c.entries, target.ID)
		c.metrics.invalidated(1)
	}

	c.metrics.miss()
	res, failed := c.calculate(target)
	if !failed {
		c.entries[target.ID] = cacheEntry{res: res, target: targetStamp, bodies: bodies}
	}
	return res
}

// validate drops everything when the config, the obstacles or the viewer
// changed since the last call
func (c *CachedViewerLOS) validate() {
	sig := signature(c.cfg, c.calc.Algorithm())
	obstacles := c.tracker.Stamp(scene.KindWall, scene.KindTile, scene.KindRegion)
	viewer := c.tracker.TokenStamp(c.ViewerLOS.viewer.ID)

	if sig == c.signature && obstacles == c.obstacles && viewer == c.viewerStamp {
		return
	}
	if len(c.entries) > 0 {
		c.log.Debug().
			Bool("config", sig != c.signature).
			Bool("obstacles", obstacles != c.obstacles).
			Bool("viewer", viewer != c.viewerStamp).
			Int("entries", len(c.entries)).
			Msg("line-of-sight cache invalidated")
	}
	c.Clear()
	c.signature, c.obstacles, c.viewerStamp = sig, obstacles, viewer
}

// bodies counts mutations of tokens other than the viewer and the target
func (c *CachedViewerLOS) bodies(targetID uint64) uint64 {
	return c.tracker.TokensTotal() - c.tracker.TokenStamp(c.ViewerLOS.viewer.ID) - c.tracker.TokenStamp(targetID)
}

// signature identifies a configuration. Fields that do not serialize, such
// as the lit-shape collaborator, are not part of it.
func signature(cfg Config, alg calc.Algorithm) string {
	b, err := json.Marshal(struct {
		Algorithm calc.Algorithm `json:"algorithm"`
		Config    Config         `json:"config"`
	}{alg, cfg})
	if err != nil {
		return ""
	}
	return string(b)
}
