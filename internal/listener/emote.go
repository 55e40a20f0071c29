package listener

import (
	"time"

	"github.com/oklog/ulid/v2"

	"ohhey/internal/gamedata"
	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

// Signature of the client function that announces "actor performed
// emote on target". Originally published by the PatMeDalamud project.
const emoteHookSignature = "E8 ?? ?? ?? ?? 48 8D 8B ?? ?? ?? ?? 4C 89 74 24"

// EmoteListener detours the emote announce function and publishes one
// EmoteEvent per firing it can fully resolve. Unresolvable firings
// (NPC initiators, unknown emote rows) are dropped; the original
// function is always invoked with unmodified arguments either way.
type EmoteListener struct {
	log     logx.Logger
	objects host.ObjectTable
	data    *gamedata.Cache
	hook    host.EmoteHook
	subs    *observers[EmoteEvent]
	now     func() time.Time
}

// NewEmoteListener installs and enables the emote hook. An install
// error means emote detection is unavailable for the session.
func NewEmoteListener(interop host.Interop, objects host.ObjectTable, data *gamedata.Cache, log logx.Logger) (*EmoteListener, error) {
	l := &EmoteListener{
		log:     log,
		objects: objects,
		data:    data,
		subs:    newObservers[EmoteEvent](log),
		now:     time.Now,
	}
	hook, err := interop.HookEmote(emoteHookSignature, l.onEmote)
	if err != nil {
		return nil, err
	}
	l.hook = hook
	hook.Enable()
	log.Debug("emote hook installed")
	return l, nil
}

// Subscribe registers fn for decoded emote events. The returned
// function unsubscribes.
func (l *EmoteListener) Subscribe(fn func(EmoteEvent)) func() {
	return l.subs.subscribe(fn)
}

func (l *EmoteListener) onEmote(eventKind uint64, initiatorAddr uintptr, emoteID uint16, targetID uint64, a5 uint64) {
	l.handle(initiatorAddr, emoteID, targetID)
	l.hook.Original(eventKind, initiatorAddr, emoteID, targetID, a5)
}

func (l *EmoteListener) handle(initiatorAddr uintptr, emoteID uint16, targetID uint64) {
	defer func() {
		if rec := recover(); rec != nil {
			l.log.Error("panic handling emote hook", logx.Any("panic", rec))
		}
	}()

	localPlayer, ok := l.objects.LocalPlayer()
	if !ok {
		return
	}

	initiator, ok := l.objects.PlayerByAddress(initiatorAddr)
	if !ok {
		// Frequent for NPC emotes and actors outside the object table.
		l.log.Debug("unresolved emote initiator address, dropping firing",
			logx.Uint64("initiator_addr", uint64(initiatorAddr)))
		return
	}

	icon, ok := l.data.EmoteIcon(emoteID)
	if !ok {
		l.log.Warn("unknown emote row id, dropping firing", logx.Uint("emote_id", uint(emoteID)))
		return
	}

	var targetName string
	if target, ok := l.objects.SearchByID(targetID); ok {
		targetName = target.Name
	}

	l.subs.notify(EmoteEvent{
		ID:               ulid.Make().String(),
		EmoteID:          emoteID,
		EmoteIconID:      icon,
		InitiatorName:    initiator.Name,
		InitiatorID:      initiator.ID,
		InitiatorWorldID: initiator.HomeWorldID,
		TargetName:       targetName,
		TargetID:         targetID,
		TargetSelf:       targetID == localPlayer.ID,
		InitiatorIsSelf:  initiator.ID == localPlayer.ID,
		Timestamp:        l.now(),
	})
}

// Close disables and removes the hook.
func (l *EmoteListener) Close() {
	if l.hook != nil {
		l.hook.Dispose()
	}
}
