// Package gamedata builds the session-static lookup tables the rest of
// the add-on reads: world names, emote icons and display names, and the
// raw targeted-message templates.
package gamedata

import (
	"fmt"
	"sort"
	"sync"
	"unicode"

	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

// EmoteInfo is one entry of the emote table after cleaning.
type EmoteInfo struct {
	ID          uint16
	IconID      uint32
	DisplayName string
}

// Cache holds read-only lookups built once per session from the static
// data tables. Only the fallback display-name memo mutates after
// construction, guarded by its own lock.
type Cache struct {
	worldNames   map[uint32]string
	emotes       map[uint16]EmoteInfo
	templates    map[uint16]string
	sortedEmotes []EmoteInfo

	fallbackMu sync.Mutex
	fallbacks  map[uint16]string
}

// New performs one full pass over the world and emote tables.
func New(data host.StaticData, log logx.Logger) *Cache {
	c := &Cache{
		worldNames: map[uint32]string{},
		emotes:     map[uint16]EmoteInfo{},
		templates:  map[uint16]string{},
		fallbacks:  map[uint16]string{},
	}

	for _, w := range data.WorldRows() {
		c.worldNames[w.ID] = w.Name
	}

	for _, row := range data.EmoteRows() {
		info := EmoteInfo{
			ID:          row.ID,
			IconID:      row.Icon,
			DisplayName: buildDisplayName(row.ID, row.Name),
		}
		c.emotes[row.ID] = info
		if row.TargetedMessage != "" {
			c.templates[row.ID] = row.TargetedMessage
		}
	}

	c.sortedEmotes = make([]EmoteInfo, 0, len(c.emotes))
	for _, info := range c.emotes {
		c.sortedEmotes = append(c.sortedEmotes, info)
	}
	sort.Slice(c.sortedEmotes, func(i, j int) bool {
		return c.sortedEmotes[i].ID < c.sortedEmotes[j].ID
	})

	log.Debug("static data cache built",
		logx.Int("worlds", len(c.worldNames)),
		logx.Int("emotes", len(c.emotes)),
		logx.Int("targeted_templates", len(c.templates)))
	return c
}

// WorldName looks up a world's display name.
func (c *Cache) WorldName(worldID uint32) (string, bool) {
	name, ok := c.worldNames[worldID]
	return name, ok
}

// EmoteIcon looks up the icon id for an emote.
func (c *Cache) EmoteIcon(emoteID uint16) (uint32, bool) {
	info, ok := c.emotes[emoteID]
	if !ok {
		return 0, false
	}
	return info.IconID, true
}

// TargetedTemplate returns the raw targeted-message template source for
// an emote, when the table has one.
func (c *Cache) TargetedTemplate(emoteID uint16) (string, bool) {
	tpl, ok := c.templates[emoteID]
	return tpl, ok
}

// TargetedTemplates returns the full emote id -> raw template map.
// Callers must not mutate it.
func (c *Cache) TargetedTemplates() map[uint16]string { return c.templates }

// DisplayName never fails: unknown or unnamed emotes get a synthesized
// name, memoized so the fallback string is allocated once per id.
func (c *Cache) DisplayName(emoteID uint16) string {
	if info, ok := c.emotes[emoteID]; ok {
		return info.DisplayName
	}

	c.fallbackMu.Lock()
	defer c.fallbackMu.Unlock()
	if name, ok := c.fallbacks[emoteID]; ok {
		return name
	}
	name := fallbackEmoteName(emoteID)
	c.fallbacks[emoteID] = name
	return name
}

// AllEmotes returns every known emote ascending by id. Callers must not
// mutate the slice.
func (c *Cache) AllEmotes() []EmoteInfo { return c.sortedEmotes }

func buildDisplayName(emoteID uint16, rawName string) string {
	cleaned := make([]rune, 0, len(rawName))
	for _, r := range rawName {
		if isLetterOrDigit(r) {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) == 0 {
		return fallbackEmoteName(emoteID)
	}
	return string(cleaned)
}

// A few emote rows carry empty or meaningless canonical names; give those
// curated names instead of the generic fallback.
func fallbackEmoteName(emoteID uint16) string {
	switch emoteID {
	case 96:
		return "NPC Sit"
	case 100:
		return "NPC Sleep"
	default:
		return fmt.Sprintf("Emote#%d", emoteID)
	}
}

func isLetterOrDigit(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
