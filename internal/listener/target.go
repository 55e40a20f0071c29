package listener

import (
	"sync"
	"time"

	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

// Signature of the client function every actor calls when changing its
// hard target.
const targetHookSignature = "E8 ?? ?? ?? ?? 48 8B 5C 24 ?? 4C 8B 74 24 ?? 41 8B C7"

// TargetListener detours the set-target function and tracks which
// actors currently target the local player. It publishes a TargetEvent
// when an actor acquires the local player and the actor's entity id
// when it lets go.
type TargetListener struct {
	log     logx.Logger
	objects host.ObjectTable
	hook    host.TargetHook
	now     func() time.Time

	targeted *observers[TargetEvent]
	removed  *observers[uint64]

	mu          sync.Mutex
	targetingMe map[uint64]struct{}
}

// NewTargetListener installs and enables the target hook.
func NewTargetListener(interop host.Interop, objects host.ObjectTable, log logx.Logger) (*TargetListener, error) {
	l := &TargetListener{
		log:         log,
		objects:     objects,
		now:         time.Now,
		targeted:    newObservers[TargetEvent](log),
		removed:     newObservers[uint64](log),
		targetingMe: map[uint64]struct{}{},
	}
	hook, err := interop.HookTarget(targetHookSignature, l.onTarget)
	if err != nil {
		return nil, err
	}
	l.hook = hook
	hook.Enable()
	log.Debug("target hook installed")
	return l, nil
}

// SubscribeTargeted registers fn for "actor now targets you" events.
func (l *TargetListener) SubscribeTargeted(fn func(TargetEvent)) func() {
	return l.targeted.subscribe(fn)
}

// SubscribeRemoved registers fn for "actor no longer targets you"
// events, keyed by the actor's entity id.
func (l *TargetListener) SubscribeRemoved(fn func(uint64)) func() {
	return l.removed.subscribe(fn)
}

func (l *TargetListener) onTarget(targeterAddr uintptr, targetID uint64) {
	l.handle(targeterAddr, targetID)
	l.hook.Original(targeterAddr, targetID)
}

func (l *TargetListener) handle(targeterAddr uintptr, targetID uint64) {
	defer func() {
		if rec := recover(); rec != nil {
			l.log.Error("panic handling target hook", logx.Any("panic", rec))
		}
	}()

	localPlayer, ok := l.objects.LocalPlayer()
	if !ok {
		return
	}

	targeter, ok := l.objects.PlayerByAddress(targeterAddr)
	if !ok {
		return
	}

	if targetID == localPlayer.ID {
		l.mu.Lock()
		_, already := l.targetingMe[targeter.ID]
		if !already {
			l.targetingMe[targeter.ID] = struct{}{}
		}
		l.mu.Unlock()
		if already {
			return
		}
		l.targeted.notify(TargetEvent{
			GameObjectID: targeter.ID,
			Name:         targeter.Name,
			WorldID:      targeter.HomeWorldID,
			IsSelf:       targeter.ID == localPlayer.ID,
			Timestamp:    l.now(),
		})
		return
	}

	// Switched to another target or cleared it.
	l.mu.Lock()
	_, was := l.targetingMe[targeter.ID]
	if was {
		delete(l.targetingMe, targeter.ID)
	}
	l.mu.Unlock()
	if was {
		l.removed.notify(targeter.ID)
	}
}

// Close disables and removes the hook.
func (l *TargetListener) Close() {
	if l.hook != nil {
		l.hook.Dispose()
	}
}
