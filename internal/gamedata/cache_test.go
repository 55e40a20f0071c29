package gamedata

import (
	"testing"

	"ohhey/internal/host"
	"ohhey/internal/host/hosttest"
	"ohhey/pkg/logx"
)

func newTestCache() *Cache {
	return New(hosttest.StaticData{
		Emotes: []host.EmoteRow{
			{ID: 42, Icon: 4201, Name: "Hug", TargetedMessage: "<gstr2> hugs <gstr3>."},
			{ID: 7, Icon: 701, Name: "wave!"},
			{ID: 96, Icon: 9601, Name: ""},
			{ID: 100, Icon: 10001, Name: "  "},
		},
		Worlds: []host.WorldRow{
			{ID: 10, Name: "Balmung"},
		},
	}, logx.Nop())
}

func TestWorldName(t *testing.T) {
	c := newTestCache()

	if name, ok := c.WorldName(10); !ok || name != "Balmung" {
		t.Fatalf("WorldName(10) = %q, %v", name, ok)
	}
	if _, ok := c.WorldName(99); ok {
		t.Fatal("unknown world resolved")
	}
}

func TestEmoteIcon(t *testing.T) {
	c := newTestCache()

	if icon, ok := c.EmoteIcon(42); !ok || icon != 4201 {
		t.Fatalf("EmoteIcon(42) = %d, %v", icon, ok)
	}
	if _, ok := c.EmoteIcon(9999); ok {
		t.Fatal("unknown emote resolved")
	}
}

func TestDisplayNameCleaning(t *testing.T) {
	c := newTestCache()

	tests := []struct {
		id   uint16
		want string
	}{
		{42, "Hug"},
		{7, "wave"},          // punctuation stripped
		{96, "NPC Sit"},      // curated fallback for the unnamed row
		{100, "NPC Sleep"},   // whitespace-only name hits the fallback
		{9999, "Emote#9999"}, // unknown id
	}
	for _, tc := range tests {
		if got := c.DisplayName(tc.id); got != tc.want {
			t.Fatalf("DisplayName(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}

	// The synthesized fallback is memoized, not rebuilt per call.
	if got := c.DisplayName(9999); got != "Emote#9999" {
		t.Fatalf("memoized DisplayName(9999) = %q", got)
	}
}

func TestTargetedTemplates(t *testing.T) {
	c := newTestCache()

	tpl, ok := c.TargetedTemplate(42)
	if !ok || tpl != "<gstr2> hugs <gstr3>." {
		t.Fatalf("TargetedTemplate(42) = %q, %v", tpl, ok)
	}
	if _, ok := c.TargetedTemplate(7); ok {
		t.Fatal("emote without template resolved")
	}
	if got := len(c.TargetedTemplates()); got != 1 {
		t.Fatalf("templates = %d, want 1", got)
	}
}

func TestAllEmotesSortedByID(t *testing.T) {
	c := newTestCache()

	all := c.AllEmotes()
	if len(all) != 4 {
		t.Fatalf("emotes = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("emotes not ascending: %+v", all)
		}
	}
}
