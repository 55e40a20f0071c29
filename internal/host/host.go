package host

// ObjectKind distinguishes the actor classes the add-on cares about.
type ObjectKind uint8

const (
	ObjectKindNone ObjectKind = iota
	ObjectKindPlayer
	ObjectKindBattleNPC
	ObjectKindEventNPC
)

// GameObject is a snapshot of a live actor in the object table. The ID is
// world-unique for the current session; Address is the native object
// pointer the engine hands to hooks.
type GameObject struct {
	ID          uint64
	Address     uintptr
	Name        string
	Kind        ObjectKind
	HomeWorldID uint32
}

// ObjectTable resolves live actors.
type ObjectTable interface {
	// LocalPlayer reports the local player object, if logged in.
	LocalPlayer() (GameObject, bool)
	// PlayerByAddress resolves a native object address to a tracked
	// player character. Misses are normal (NPCs, stale addresses).
	PlayerByAddress(addr uintptr) (GameObject, bool)
	// SearchByID resolves an entity id to a live object.
	SearchByID(id uint64) (GameObject, bool)
}

// PlayerState exposes local player identity details that outlive the
// object table entry.
type PlayerState interface {
	CharacterName() string
	HomeWorldID() uint32
}

// TargetManager reads and mutates the local player's current target.
type TargetManager interface {
	CurrentTarget() (uint64, bool)
	SetTarget(obj GameObject)
	ClearTarget()
}

// EmoteAgent wraps the client agent that owns emote availability and
// execution.
type EmoteAgent interface {
	LoggedIn() bool
	CanUseEmote(emoteID uint16) bool
	// ExecuteEmote performs the emote. addToHistory controls whether the
	// client records it in its own recent-emote UI.
	ExecuteEmote(emoteID uint16, addToHistory bool) error
}

// GameConfig reads and writes client UI configuration switches.
type GameConfig interface {
	UIBool(key string) (bool, error)
	SetUIBool(key string, value bool) error
}

// Condition reports client condition flags.
type Condition interface {
	InCombat() bool
}

// SoundPlayer plays one of the client's chat sound effects.
type SoundPlayer interface {
	PlayChatSound(id uint32)
}

// ChatEntry is an outbound chat message.
type ChatEntry struct {
	Channel Channel
	// SenderName is shown as the line's sender for channels that render
	// one. Empty means no sender column.
	SenderName string
	Message    Message
}

// MessageHandler observes every line the client is about to print.
// Setting *handled suppresses the line; handlers run synchronously on
// the client's chat thread and must not block.
type MessageHandler func(channel Channel, timestamp int32, sender *Message, message *Message, handled *bool)

// LinkHandler receives clicks on link segments registered through
// AddLinkHandler.
type LinkHandler func(commandID uint32, source Message)

// ChatGui is the client chat pipeline: printing, inbound line
// interception, and clickable-link dispatch.
type ChatGui interface {
	Print(entry ChatEntry)
	// RegisterMessageHandler subscribes to inbound lines. The returned
	// function unsubscribes.
	RegisterMessageHandler(h MessageHandler) (unregister func())
	AddLinkHandler(commandID uint32, h LinkHandler)
	RemoveLinkHandler(commandID uint32)
}

// EmoteHookFunc is the native "entity performed emote" function. The
// parameter layout follows the engine call: an opaque event kind, the
// initiator's object address, the emote row id, the target's entity id,
// and a trailing opaque argument.
type EmoteHookFunc func(eventKind uint64, initiatorAddr uintptr, emoteID uint16, targetID uint64, a5 uint64)

// TargetHookFunc is the native "entity changed target" function:
// the targeter's object address and the new target entity id (zero when
// the target is cleared).
type TargetHookFunc func(targeterAddr uintptr, targetID uint64)

// EmoteHook is an installed detour over the emote announce function.
type EmoteHook interface {
	// Original invokes the intercepted function with unmodified
	// arguments.
	Original(eventKind uint64, initiatorAddr uintptr, emoteID uint16, targetID uint64, a5 uint64)
	Enable()
	Dispose()
}

// TargetHook is an installed detour over the set-target function.
type TargetHook interface {
	Original(targeterAddr uintptr, targetID uint64)
	Enable()
	Dispose()
}

// Interop installs native detours from binary signatures. A failed
// install degrades the dependent feature for the session; it is never
// retried.
type Interop interface {
	HookEmote(signature string, detour EmoteHookFunc) (EmoteHook, error)
	HookTarget(signature string, detour TargetHookFunc) (TargetHook, error)
}

// EmoteRow is one row of the static emote table.
type EmoteRow struct {
	ID   uint16
	Icon uint32
	Name string
	// TargetedMessage is the raw localized template source for the
	// "X does emote on Y" log line, empty when the emote has none.
	TargetedMessage string
}

// WorldRow is one row of the static world table.
type WorldRow struct {
	ID   uint32
	Name string
}

// StaticData iterates the static game data tables once per session.
type StaticData interface {
	EmoteRows() []EmoteRow
	WorldRows() []WorldRow
}

// CommandHandler receives a dispatched chat command with its raw
// argument string.
type CommandHandler func(command, args string)

// CommandRouter registers slash-command handlers with the client.
type CommandRouter interface {
	AddHandler(name, help string, h CommandHandler) error
	RemoveHandler(name string)
}
