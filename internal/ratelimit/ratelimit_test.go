package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"ohhey/pkg/logx"
)

func newTestLimiter(cfg *Config, now *time.Time) *Limiter {
	l := New(
		func() Config { return *cfg },
		func(id uint16) string { return fmt.Sprintf("emote-%d", id) },
		logx.Nop())
	l.now = func() time.Time { return *now }
	return l
}

func TestDisabledAlwaysAdmits(t *testing.T) {
	cfg := &Config{Enabled: false, WindowSeconds: 1, MaxCount: 1}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	for i := 0; i < 10; i++ {
		if !l.TryConsume(42) {
			t.Fatal("disabled limiter denied")
		}
	}
	if st := l.Status(); st.SuppressedTotal != 0 || st.CurrentCount != 0 {
		t.Fatalf("disabled limiter tracked state: %+v", st)
	}
}

func TestFixedWindowDeniesUntilReset(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 5, MaxCount: 2, Mode: ModeFixedWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	if !l.TryConsume(42) || !l.TryConsume(42) {
		t.Fatal("first two must be admitted")
	}
	now = now.Add(100 * time.Millisecond)
	if l.TryConsume(42) {
		t.Fatal("third within the window must be denied")
	}
	if st := l.Status(); st.SuppressedTotal != 1 || st.CurrentCount != 2 {
		t.Fatalf("status = %+v", st)
	}

	// The window resets once stale.
	now = now.Add(5 * time.Second)
	if !l.TryConsume(42) {
		t.Fatal("fresh window must admit")
	}
}

func TestRollingWindowSlidesPerTimestamp(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 10, MaxCount: 2, Mode: ModeRollingWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	l.TryConsume(42) // t=0
	now = now.Add(6 * time.Second)
	l.TryConsume(42) // t=6
	now = now.Add(time.Second)
	if l.TryConsume(42) { // t=7, both still inside
		t.Fatal("denied admission expected at t=7")
	}
	now = now.Add(4 * time.Second)
	if !l.TryConsume(42) { // t=11, the t=0 stamp slid out
		t.Fatal("admission expected after the oldest stamp expired")
	}
}

func TestTriggersAreIndependent(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 5, MaxCount: 1, Mode: ModeFixedWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	if !l.TryConsume(42) {
		t.Fatal("first trigger must be admitted")
	}
	if l.TryConsume(42) {
		t.Fatal("repeat of the same trigger must be denied")
	}
	if !l.TryConsume(7) {
		t.Fatal("a different trigger has its own window")
	}
}

func TestConfigClamping(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 0, MaxCount: -3, Mode: ModeFixedWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	// Clamped to window 1s, max 1.
	if !l.TryConsume(42) {
		t.Fatal("first must be admitted")
	}
	if l.TryConsume(42) {
		t.Fatal("second within the clamped window must be denied")
	}
	now = now.Add(time.Second)
	if !l.TryConsume(42) {
		t.Fatal("clamped 1s window must have reset")
	}

	st := l.Status()
	if st.WindowSeconds != 1 || st.MaxCount != 1 {
		t.Fatalf("status not clamped: %+v", st)
	}
}

func TestStatusReportsNextAllowedAt(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 5, MaxCount: 1, Mode: ModeFixedWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	start := now
	l.TryConsume(42)
	l.TryConsume(42)

	st := l.Status()
	if st.NextAllowedAt == nil {
		t.Fatal("NextAllowedAt missing while saturated")
	}
	if want := start.Add(5 * time.Second); !st.NextAllowedAt.Equal(want) {
		t.Fatalf("NextAllowedAt = %v, want %v", st.NextAllowedAt, want)
	}
	if st.LastTriggerLabel != "emote-42" {
		t.Fatalf("label = %q", st.LastTriggerLabel)
	}
}

func TestModeSwitchKeepsBothStates(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 60, MaxCount: 1, Mode: ModeFixedWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	l.TryConsume(42)
	if l.TryConsume(42) {
		t.Fatal("fixed window saturated")
	}

	// Rolling mode has no record yet, so it admits once.
	cfg.Mode = ModeRollingWindow
	if !l.TryConsume(42) {
		t.Fatal("rolling state must be independent")
	}

	// Back to fixed: still saturated in its own window.
	cfg.Mode = ModeFixedWindow
	if l.TryConsume(42) {
		t.Fatal("fixed state must survive the round trip")
	}
}

func TestResetClearsStateAndCounters(t *testing.T) {
	cfg := &Config{Enabled: true, WindowSeconds: 60, MaxCount: 1, Mode: ModeRollingWindow}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(cfg, &now)

	l.TryConsume(42)
	l.TryConsume(42)

	l.Reset()

	st := l.Status()
	if st.SuppressedTotal != 0 || st.CurrentCount != 0 || st.LastTriggerLabel != "" {
		t.Fatalf("state survived Reset: %+v", st)
	}
	if !l.TryConsume(42) {
		t.Fatal("post-reset admission expected")
	}
}
