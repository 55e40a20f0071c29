// Package replaylink manages the pool of clickable "replay this emote"
// chat links. Entries are bounded, TTL-expiring, and their command
// indices are recycled through a free-list so the handle space handed to
// the chat link dispatcher stays small.
package replaylink

import (
	"sort"
	"sync"
	"time"

	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

const (
	// DefaultTTL is how long a minted link stays clickable.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries bounds the live pool.
	DefaultMaxEntries = 64
	// commandIndexStart keeps replay handles clear of any other link
	// handles the add-on might register.
	commandIndexStart uint32 = 20_000
)

// Registrar is the chat-link surface the registry drives.
type Registrar interface {
	AddLinkHandler(commandID uint32, h host.LinkHandler)
	RemoveLinkHandler(commandID uint32)
}

// ClickEvent is delivered to the click callback for a live, unexpired
// link.
type ClickEvent struct {
	CommandIndex uint32
	InitiatorID  uint64
	EmoteID      uint16
	Silent       bool
	Age          time.Duration
}

type entry struct {
	initiatorID uint64
	emoteID     uint16
	silent      bool
	createdAt   time.Time
	ttl         time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

type removeReason uint8

const (
	removeManual removeReason = iota
	removeExpired
	removeEvicted
)

// Stats is the debug-view counter snapshot.
type Stats struct {
	ActiveCount      int
	ReusableIDCount  int
	NextCommandIndex uint32
	MaxEntries       int
	DefaultTTL       time.Duration
	Created          int64
	Removed          int64
	RemovedExpired   int64
	RemovedEvicted   int64
	Clicked          int64
}

// Entry is a debug-view row.
type Entry struct {
	CommandIndex uint32
	InitiatorID  uint64
	EmoteID      uint16
	Silent       bool
	CreatedAt    time.Time
	TTL          time.Duration
	Remaining    time.Duration
}

// Registry owns the link map, free-list and counters. One lock covers
// all of them; prune/evict during Create happen under the same
// acquisition as the insert so concurrent removals cannot race it.
type Registry struct {
	links   Registrar
	onClick func(ClickEvent)
	log     logx.Logger
	now     func() time.Time

	capacity   int
	defaultTTL time.Duration

	mu      sync.Mutex
	entries map[uint32]entry
	free    []uint32 // FIFO of recycled command indices
	next    uint32

	created        int64
	removed        int64
	removedExpired int64
	removedEvicted int64
	clicked        int64
}

// New builds a registry with the default capacity and TTL. onClick runs
// synchronously on the chat click thread; panics in it are contained.
func New(links Registrar, onClick func(ClickEvent), log logx.Logger) *Registry {
	return &Registry{
		links:      links,
		onClick:    onClick,
		log:        log,
		now:        time.Now,
		capacity:   DefaultMaxEntries,
		defaultTTL: DefaultTTL,
		entries:    map[uint32]entry{},
		next:       commandIndexStart,
	}
}

// Create mints a link handle for the given actor/emote and registers it
// with the chat link dispatcher. Expired entries are pruned first; if
// the pool is still full, the oldest entry is evicted.
func (r *Registry) Create(initiatorID uint64, emoteID uint16, silent bool) uint32 {
	return r.CreateTTL(initiatorID, emoteID, silent, r.defaultTTL)
}

// CreateTTL is Create with an explicit TTL.
func (r *Registry) CreateTTL(initiatorID uint64, emoteID uint16, silent bool, ttl time.Duration) uint32 {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	for len(r.entries) >= r.capacity {
		r.removeLocked(r.oldestLocked(), removeEvicted)
	}

	var idx uint32
	if len(r.free) > 0 {
		idx = r.free[0]
		r.free = r.free[1:]
	} else {
		idx = r.next
		r.next++
	}

	r.entries[idx] = entry{
		initiatorID: initiatorID,
		emoteID:     emoteID,
		silent:      silent,
		createdAt:   now,
		ttl:         ttl,
	}
	r.created++
	r.links.AddLinkHandler(idx, r.handleClick)
	return idx
}

// Remove drops a live link by handle. Unknown handles are ignored.
func (r *Registry) Remove(commandIndex uint32) {
	r.mu.Lock()
	r.removeLocked(commandIndex, removeManual)
	r.mu.Unlock()
}

func (r *Registry) handleClick(commandIndex uint32, _ host.Message) {
	r.mu.Lock()
	e, ok := r.entries[commandIndex]
	if !ok {
		r.mu.Unlock()
		// Expected race: the link expired or was evicted between render
		// and click.
		r.log.Warn("chat link click for unknown command index",
			logx.Uint32("command_index", commandIndex))
		return
	}
	now := r.now()
	if e.expired(now) {
		r.removeLocked(commandIndex, removeExpired)
		r.mu.Unlock()
		return
	}
	r.clicked++
	r.mu.Unlock()

	if r.onClick == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in replay link click handler", logx.Any("panic", rec))
		}
	}()
	r.onClick(ClickEvent{
		CommandIndex: commandIndex,
		InitiatorID:  e.initiatorID,
		EmoteID:      e.emoteID,
		Silent:       e.silent,
		Age:          now.Sub(e.createdAt),
	})
}

// Snapshot returns counters and live entries, newest first. Expired
// entries still show until the next create or click sweeps them.
func (r *Registry) Snapshot() (Stats, []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entries := make([]Entry, 0, len(r.entries))
	for idx, e := range r.entries {
		entries = append(entries, Entry{
			CommandIndex: idx,
			InitiatorID:  e.initiatorID,
			EmoteID:      e.emoteID,
			Silent:       e.silent,
			CreatedAt:    e.createdAt,
			TTL:          e.ttl,
			Remaining:    e.ttl - now.Sub(e.createdAt),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	return Stats{
		ActiveCount:      len(r.entries),
		ReusableIDCount:  len(r.free),
		NextCommandIndex: r.next,
		MaxEntries:       r.capacity,
		DefaultTTL:       r.defaultTTL,
		Created:          r.created,
		Removed:          r.removed,
		RemovedExpired:   r.removedExpired,
		RemovedEvicted:   r.removedEvicted,
		Clicked:          r.clicked,
	}, entries
}

// Close unregisters every live handle and clears internal state.
func (r *Registry) Close() {
	r.mu.Lock()
	for idx := range r.entries {
		r.links.RemoveLinkHandler(idx)
	}
	r.entries = map[uint32]entry{}
	r.free = nil
	r.mu.Unlock()
}

func (r *Registry) pruneLocked(now time.Time) {
	if len(r.entries) == 0 {
		return
	}
	var stale []uint32
	for idx, e := range r.entries {
		if e.expired(now) {
			stale = append(stale, idx)
		}
	}
	for _, idx := range stale {
		r.removeLocked(idx, removeExpired)
	}
}

func (r *Registry) oldestLocked() uint32 {
	var oldest uint32
	var oldestAt time.Time
	first := true
	for idx, e := range r.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldest, oldestAt, first = idx, e.createdAt, false
		}
	}
	return oldest
}

func (r *Registry) removeLocked(commandIndex uint32, reason removeReason) {
	if _, ok := r.entries[commandIndex]; !ok {
		return
	}
	delete(r.entries, commandIndex)
	r.links.RemoveLinkHandler(commandIndex)
	r.removed++
	switch reason {
	case removeExpired:
		r.removedExpired++
	case removeEvicted:
		r.removedEvicted++
	}
	r.free = append(r.free, commandIndex)
}
