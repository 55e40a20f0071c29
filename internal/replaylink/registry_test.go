package replaylink

import (
	"testing"
	"time"

	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

type fakeLinks struct {
	handlers map[uint32]host.LinkHandler
	removed  []uint32
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{handlers: map[uint32]host.LinkHandler{}}
}

func (f *fakeLinks) AddLinkHandler(id uint32, h host.LinkHandler) { f.handlers[id] = h }
func (f *fakeLinks) RemoveLinkHandler(id uint32) {
	delete(f.handlers, id)
	f.removed = append(f.removed, id)
}

func newTestRegistry(t *testing.T, onClick func(ClickEvent)) (*Registry, *fakeLinks, *time.Time) {
	t.Helper()
	links := newFakeLinks()
	r := New(links, onClick, logx.Nop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, links, &now
}

func TestCreateAssignsSequentialIndices(t *testing.T) {
	r, links, _ := newTestRegistry(t, nil)

	a := r.Create(1, 10, false)
	b := r.Create(2, 11, true)
	if a != commandIndexStart || b != commandIndexStart+1 {
		t.Fatalf("indices = %d, %d; want %d, %d", a, b, commandIndexStart, commandIndexStart+1)
	}
	if len(links.handlers) != 2 {
		t.Fatalf("registered handlers = %d, want 2", len(links.handlers))
	}
}

func TestRemoveRecyclesIndexFIFO(t *testing.T) {
	r, _, _ := newTestRegistry(t, nil)

	a := r.Create(1, 10, false)
	b := r.Create(2, 11, false)
	r.Remove(a)
	r.Remove(b)

	if got := r.Create(3, 12, false); got != a {
		t.Fatalf("first recycled index = %d, want %d", got, a)
	}
	if got := r.Create(4, 13, false); got != b {
		t.Fatalf("second recycled index = %d, want %d", got, b)
	}
}

func TestClickDeliversEvent(t *testing.T) {
	var got []ClickEvent
	r, links, now := newTestRegistry(t, func(ev ClickEvent) { got = append(got, ev) })

	idx := r.Create(42, 7, true)
	*now = now.Add(30 * time.Second)
	links.handlers[idx](idx, host.Message{})

	if len(got) != 1 {
		t.Fatalf("clicks delivered = %d, want 1", len(got))
	}
	ev := got[0]
	if ev.InitiatorID != 42 || ev.EmoteID != 7 || !ev.Silent {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Age != 30*time.Second {
		t.Fatalf("age = %v, want 30s", ev.Age)
	}
}

func TestClickAfterTTLRemovesWithoutDelivery(t *testing.T) {
	clicks := 0
	r, links, now := newTestRegistry(t, func(ClickEvent) { clicks++ })

	idx := r.Create(1, 10, false)
	h := links.handlers[idx]
	*now = now.Add(DefaultTTL + time.Second)
	h(idx, host.Message{})

	if clicks != 0 {
		t.Fatalf("expired click delivered %d events, want 0", clicks)
	}
	stats, entries := r.Snapshot()
	if len(entries) != 0 || stats.RemovedExpired != 1 {
		t.Fatalf("entries = %d, removedExpired = %d; want 0, 1", len(entries), stats.RemovedExpired)
	}
	// Expired removal only happens once even if the stale handle fires
	// again.
	h(idx, host.Message{})
	stats, _ = r.Snapshot()
	if stats.RemovedExpired != 1 {
		t.Fatalf("removedExpired after second click = %d, want 1", stats.RemovedExpired)
	}
}

func TestCreatePrunesExpiredBeforeEvicting(t *testing.T) {
	r, _, now := newTestRegistry(t, nil)

	for i := 0; i < DefaultMaxEntries; i++ {
		r.Create(uint64(i), uint16(i), false)
	}
	*now = now.Add(DefaultTTL + time.Minute)
	r.Create(999, 99, false)

	stats, entries := r.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("live entries = %d, want 1", len(entries))
	}
	if stats.RemovedExpired != DefaultMaxEntries {
		t.Fatalf("removedExpired = %d, want %d", stats.RemovedExpired, DefaultMaxEntries)
	}
	if stats.RemovedEvicted != 0 {
		t.Fatalf("removedEvicted = %d, want 0", stats.RemovedEvicted)
	}
}

func TestCreateEvictsOldestWhenFull(t *testing.T) {
	r, _, now := newTestRegistry(t, nil)

	first := r.Create(0, 0, false)
	for i := 1; i < DefaultMaxEntries; i++ {
		*now = now.Add(time.Second)
		r.Create(uint64(i), uint16(i), false)
	}
	*now = now.Add(time.Second)
	got := r.Create(999, 99, false)

	// The oldest slot is recycled for the new entry.
	if got != first {
		t.Fatalf("new index = %d, want evicted index %d", got, first)
	}
	stats, entries := r.Snapshot()
	if len(entries) != DefaultMaxEntries {
		t.Fatalf("live entries = %d, want %d", len(entries), DefaultMaxEntries)
	}
	if stats.RemovedEvicted != 1 {
		t.Fatalf("removedEvicted = %d, want 1", stats.RemovedEvicted)
	}
	if entries[0].InitiatorID != 999 {
		t.Fatalf("newest entry initiator = %d, want 999", entries[0].InitiatorID)
	}
}

func TestSnapshotCounters(t *testing.T) {
	r, links, _ := newTestRegistry(t, func(ClickEvent) {})

	a := r.Create(1, 10, false)
	r.Create(2, 11, false)
	links.handlers[a](a, host.Message{})
	r.Remove(a)

	stats, entries := r.Snapshot()
	if stats.Created != 2 || stats.Removed != 1 || stats.Clicked != 1 {
		t.Fatalf("created/removed/clicked = %d/%d/%d, want 2/1/1", stats.Created, stats.Removed, stats.Clicked)
	}
	if stats.ActiveCount != 1 || stats.ReusableIDCount != 1 {
		t.Fatalf("active/reusable = %d/%d, want 1/1", stats.ActiveCount, stats.ReusableIDCount)
	}
	if len(entries) != 1 || entries[0].InitiatorID != 2 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestCloseUnregistersAll(t *testing.T) {
	r, links, _ := newTestRegistry(t, nil)

	r.Create(1, 10, false)
	r.Create(2, 11, false)
	r.Close()

	if len(links.handlers) != 0 {
		t.Fatalf("handlers left registered = %d, want 0", len(links.handlers))
	}
	if _, entries := r.Snapshot(); len(entries) != 0 {
		t.Fatalf("entries after close = %d, want 0", len(entries))
	}
}

func TestClickHandlerPanicIsContained(t *testing.T) {
	r, links, _ := newTestRegistry(t, func(ClickEvent) { panic("boom") })

	idx := r.Create(1, 10, false)
	links.handlers[idx](idx, host.Message{}) // must not propagate

	stats, _ := r.Snapshot()
	if stats.Clicked != 1 {
		t.Fatalf("clicked = %d, want 1", stats.Clicked)
	}
}
