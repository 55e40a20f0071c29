package template

import (
	"sync"

	"ohhey/pkg/logx"
)

// PreviewPlaceholder is the name slot used by the prebuilt preview cache.
// Consumers substitute a real name (or a sentinel) for it.
const PreviewPlaceholder = "{Name}"

// PreviewCache lazily renders every emote's targeted template in both
// directions with PreviewPlaceholder as the name. It is an explicit
// two-state cache: uninitialized or ready, one mutex, with Invalidate
// atomically dropping back to uninitialized.
type PreviewCache struct {
	source func() map[uint16]string
	log    logx.Logger

	mu       sync.Mutex
	ready    bool
	previews map[uint16]Preview
}

// NewPreviewCache wires the cache to its template source (emote id ->
// raw template). Nothing is rendered until first use.
func NewPreviewCache(source func() map[uint16]string, log logx.Logger) *PreviewCache {
	return &PreviewCache{source: source, log: log}
}

// Previews returns the full preview map, building it on first use.
// Callers must not mutate the result.
func (c *PreviewCache) Previews() map[uint16]Preview {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildLocked()
	return c.previews
}

// Preview returns the cached rendering for one emote.
func (c *PreviewCache) Preview(emoteID uint16) (Preview, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildLocked()
	p, ok := c.previews[emoteID]
	return p, ok
}

// Len reports the number of cached previews, building if needed.
func (c *PreviewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buildLocked()
	return len(c.previews)
}

// Invalidate drops the cache so the next access rebuilds it.
func (c *PreviewCache) Invalidate() {
	c.mu.Lock()
	c.ready = false
	c.previews = nil
	c.mu.Unlock()
}

func (c *PreviewCache) buildLocked() {
	if c.ready {
		return
	}
	out := map[uint16]Preview{}
	for id, raw := range c.source() {
		if raw == "" {
			continue
		}
		out[id] = Render(raw, PreviewPlaceholder)
	}
	c.previews = out
	c.ready = true
	c.log.Debug("targeted preview cache built", logx.Int("entries", len(out)))
}
