// Package listener owns the two raw event sources: the native emote and
// target hooks, and the rendered chat line stream. Each listener
// publishes decoded events to a synchronous observer registry; nothing
// here spawns goroutines or blocks, because every callback runs on a
// client engine thread.
package listener

import "time"

// EmoteEvent is one decoded firing of the native emote announce
// function. Immutable after construction.
type EmoteEvent struct {
	ID               string
	EmoteID          uint16
	EmoteIconID      uint32
	InitiatorName    string
	InitiatorID      uint64
	InitiatorWorldID uint32
	TargetName       string
	TargetID         uint64
	TargetSelf       bool
	InitiatorIsSelf  bool
	Timestamp        time.Time
}

// TargetEvent reports an actor that started targeting the local player.
type TargetEvent struct {
	GameObjectID uint64
	Name         string
	WorldID      uint32
	IsSelf       bool
	Timestamp    time.Time
}
