package listener

import (
	"testing"

	"ohhey/internal/host"
	"ohhey/internal/host/hosttest"
	"ohhey/pkg/logx"
)

func newTargetFixture(t *testing.T) (*TargetListener, *hosttest.Interop) {
	t.Helper()
	interop := &hosttest.Interop{}
	objects := hosttest.NewObjectTable()
	objects.SetLocalPlayer(host.GameObject{ID: 100, Address: 0x1000, Name: "Aster Vale", Kind: host.ObjectKindPlayer, HomeWorldID: 10})
	objects.Add(host.GameObject{ID: 200, Address: 0x2000, Name: "Bob Brightwood", Kind: host.ObjectKindPlayer, HomeWorldID: 11})
	objects.Add(host.GameObject{ID: 300, Address: 0x3000, Name: "Cara Dawn", Kind: host.ObjectKindPlayer, HomeWorldID: 10})

	l, err := NewTargetListener(interop, objects, logx.Nop())
	if err != nil {
		t.Fatalf("NewTargetListener: %v", err)
	}
	return l, interop
}

func TestTargetListenerPublishesTargeted(t *testing.T) {
	l, interop := newTargetFixture(t)
	defer l.Close()

	var got []TargetEvent
	l.SubscribeTargeted(func(ev TargetEvent) { got = append(got, ev) })

	interop.Target.Fire(0x2000, 100)

	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if got[0].GameObjectID != 200 || got[0].Name != "Bob Brightwood" || got[0].WorldID != 11 || got[0].IsSelf {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

func TestTargetListenerDeduplicatesRepeatTargeting(t *testing.T) {
	l, interop := newTargetFixture(t)
	defer l.Close()

	events := 0
	l.SubscribeTargeted(func(TargetEvent) { events++ })

	interop.Target.Fire(0x2000, 100)
	interop.Target.Fire(0x2000, 100)

	if events != 1 {
		t.Fatalf("events = %d, want 1", events)
	}
}

func TestTargetListenerPublishesRemovalOnSwitch(t *testing.T) {
	l, interop := newTargetFixture(t)
	defer l.Close()

	var removed []uint64
	l.SubscribeRemoved(func(id uint64) { removed = append(removed, id) })

	interop.Target.Fire(0x2000, 100) // Bob targets us
	interop.Target.Fire(0x2000, 300) // Bob switches to Cara
	interop.Target.Fire(0x2000, 0)   // Bob clears, was not targeting us

	if len(removed) != 1 || removed[0] != 200 {
		t.Fatalf("removed = %v, want [200]", removed)
	}
}

func TestTargetListenerSelfTargeting(t *testing.T) {
	l, interop := newTargetFixture(t)
	defer l.Close()

	var got []TargetEvent
	l.SubscribeTargeted(func(ev TargetEvent) { got = append(got, ev) })

	interop.Target.Fire(0x1000, 100)

	if len(got) != 1 || !got[0].IsSelf {
		t.Fatalf("expected one self target event, got %+v", got)
	}
}

func TestTargetListenerAlwaysCallsOriginal(t *testing.T) {
	l, interop := newTargetFixture(t)
	defer l.Close()

	l.SubscribeTargeted(func(TargetEvent) { panic("subscriber fault") })

	interop.Target.Fire(0x2000, 100)
	interop.Target.Fire(0xdead, 100) // unknown targeter

	if got := len(interop.Target.OriginalCalls); got != 2 {
		t.Fatalf("original calls = %d, want 2", got)
	}
}
