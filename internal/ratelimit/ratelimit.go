// Package ratelimit gates outbound chat notifications per triggering
// emote. Two windowing disciplines are supported: a rolling window over
// recorded timestamps and a fixed window that resets when first observed
// stale. Configuration is re-read and clamped on every decision, so bad
// values in a hand-edited settings file can never wedge the limiter.
package ratelimit

import (
	"sync"
	"time"

	"ohhey/pkg/logx"
)

type Mode uint8

const (
	ModeRollingWindow Mode = iota
	ModeFixedWindow
)

func (m Mode) String() string {
	if m == ModeFixedWindow {
		return "fixed-window"
	}
	return "rolling-window"
}

// Config is the live rate-limit section of the settings document.
type Config struct {
	Enabled       bool
	WindowSeconds int
	MaxCount      int
	Mode          Mode
}

const (
	minWindowSeconds = 1
	maxWindowSeconds = 3600
	minMaxCount      = 1
	maxMaxCount      = 1000
)

// Status is the debug-view snapshot.
type Status struct {
	Enabled          bool
	WindowSeconds    int
	MaxCount         int
	CurrentCount     int
	SuppressedTotal  int
	NextAllowedAt    *time.Time
	TrackedTriggers  int
	LastTriggerLabel string
	Mode             Mode
}

// fixedWindow is an immutable window state; transitions build a fresh
// value instead of mutating in place.
type fixedWindow struct {
	start time.Time
	count int
}

func (w fixedWindow) refresh(now time.Time, windowSeconds int) fixedWindow {
	if now.Sub(w.start) >= time.Duration(windowSeconds)*time.Second {
		return fixedWindow{start: now}
	}
	return w
}

func (w fixedWindow) bump() fixedWindow {
	return fixedWindow{start: w.start, count: w.count + 1}
}

// Limiter applies per-trigger admission control. It keeps state for both
// modes simultaneously; only the configured mode's state is consulted or
// mutated, so flipping modes mid-session is harmless.
//
// The orchestrator is the only writer, but status reads come from the
// debug surface on another thread, so all state sits behind one lock.
type Limiter struct {
	cfg   func() Config
	label func(triggerID uint16) string
	log   logx.Logger
	now   func() time.Time

	mu          sync.Mutex
	rolling     map[uint16][]time.Time
	fixed       map[uint16]fixedWindow
	suppressed  int
	lastTrigger uint16
	lastLabel   string
	hasLast     bool
}

// New wires the limiter to a live config snapshot provider and a
// trigger-label lookup (used only for the debug status).
func New(cfg func() Config, label func(uint16) string, log logx.Logger) *Limiter {
	return &Limiter{
		cfg:     cfg,
		label:   label,
		log:     log,
		now:     time.Now,
		rolling: map[uint16][]time.Time{},
		fixed:   map[uint16]fixedWindow{},
	}
}

// TryConsume reports whether a notification for triggerID may go out now
// and, if so, records it. Disabled means always-admit with no state
// change. Denials increment the suppressed counter.
func (l *Limiter) TryConsume(triggerID uint16) bool {
	cfg := l.cfg()
	if !cfg.Enabled {
		return true
	}

	windowSeconds := clamp(cfg.WindowSeconds, minWindowSeconds, maxWindowSeconds)
	maxCount := clamp(cfg.MaxCount, minMaxCount, maxMaxCount)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastTrigger = triggerID
	l.lastLabel = l.label(triggerID)
	l.hasLast = true

	if cfg.Mode == ModeFixedWindow {
		state, ok := l.fixed[triggerID]
		if !ok {
			state = fixedWindow{start: now}
		}
		state = state.refresh(now, windowSeconds)
		if state.count >= maxCount {
			l.suppressed++
			l.fixed[triggerID] = state
			l.log.Debug("notification rate limited",
				logx.Uint("trigger", uint(triggerID)),
				logx.String("mode", cfg.Mode.String()))
			return false
		}
		l.fixed[triggerID] = state.bump()
		return true
	}

	times := pruneBefore(l.rolling[triggerID], now.Add(-time.Duration(windowSeconds)*time.Second))
	if len(times) >= maxCount {
		l.rolling[triggerID] = times
		l.suppressed++
		l.log.Debug("notification rate limited",
			logx.Uint("trigger", uint(triggerID)),
			logx.String("mode", cfg.Mode.String()))
		return false
	}
	l.rolling[triggerID] = append(times, now)
	return true
}

// Status refreshes the active mode's view of the last trigger (pruning
// stale entries as a read-only side effect) without consuming a slot.
func (l *Limiter) Status() Status {
	cfg := l.cfg()
	windowSeconds := clamp(cfg.WindowSeconds, minWindowSeconds, maxWindowSeconds)
	maxCount := clamp(cfg.MaxCount, minMaxCount, maxMaxCount)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st := Status{
		Enabled:         cfg.Enabled,
		WindowSeconds:   windowSeconds,
		MaxCount:        maxCount,
		SuppressedTotal: l.suppressed,
		Mode:            cfg.Mode,
	}
	if !l.hasLast {
		return st
	}
	st.LastTriggerLabel = l.lastLabel

	if cfg.Mode == ModeRollingWindow {
		times, ok := l.rolling[l.lastTrigger]
		if !ok {
			return st
		}
		times = pruneBefore(times, now.Add(-time.Duration(windowSeconds)*time.Second))
		l.rolling[l.lastTrigger] = times
		st.CurrentCount = len(times)
		st.TrackedTriggers = len(l.rolling)
		if cfg.Enabled && len(times) >= maxCount && len(times) > 0 {
			next := times[0].Add(time.Duration(windowSeconds) * time.Second)
			st.NextAllowedAt = &next
		}
		return st
	}

	state, ok := l.fixed[l.lastTrigger]
	if !ok {
		return st
	}
	refreshed := state.refresh(now, windowSeconds)
	st.CurrentCount = refreshed.count
	st.TrackedTriggers = len(l.fixed)
	if cfg.Enabled && refreshed.count >= maxCount {
		next := refreshed.start.Add(time.Duration(windowSeconds) * time.Second)
		st.NextAllowedAt = &next
	}
	return st
}

// Reset clears all tracked state and counters.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.rolling = map[uint16][]time.Time{}
	l.fixed = map[uint16]fixedWindow{}
	l.suppressed = 0
	l.hasLast = false
	l.lastLabel = ""
	l.mu.Unlock()
}

func pruneBefore(times []time.Time, threshold time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(threshold) {
		i++
	}
	return times[i:]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
