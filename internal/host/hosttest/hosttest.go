// Package hosttest provides in-memory fakes for the host collaborator
// interfaces. They back package tests and the ohheysim harness.
package hosttest

import (
	"fmt"
	"sync"

	"ohhey/internal/host"
)

// ObjectTable is a fake object table seeded by tests.
type ObjectTable struct {
	mu      sync.Mutex
	local   host.GameObject
	hasLocl bool
	objects []host.GameObject
}

func NewObjectTable() *ObjectTable { return &ObjectTable{} }

// SetLocalPlayer installs the local player and adds it to the table.
func (t *ObjectTable) SetLocalPlayer(obj host.GameObject) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = obj
	t.hasLocl = true
	t.addLocked(obj)
}

// Add inserts or replaces an object by id.
func (t *ObjectTable) Add(obj host.GameObject) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addLocked(obj)
}

func (t *ObjectTable) addLocked(obj host.GameObject) {
	for i, o := range t.objects {
		if o.ID == obj.ID {
			t.objects[i] = obj
			return
		}
	}
	t.objects = append(t.objects, obj)
}

// Remove drops an object by id.
func (t *ObjectTable) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, o := range t.objects {
		if o.ID == id {
			t.objects = append(t.objects[:i], t.objects[i+1:]...)
			return
		}
	}
}

// ClearLocalPlayer simulates logging out.
func (t *ObjectTable) ClearLocalPlayer() {
	t.mu.Lock()
	t.hasLocl = false
	t.mu.Unlock()
}

func (t *ObjectTable) LocalPlayer() (host.GameObject, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.local, t.hasLocl
}

func (t *ObjectTable) PlayerByAddress(addr uintptr) (host.GameObject, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, o := range t.objects {
		if o.Address == addr && o.Kind == host.ObjectKindPlayer {
			return o, true
		}
	}
	return host.GameObject{}, false
}

func (t *ObjectTable) SearchByID(id uint64) (host.GameObject, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, o := range t.objects {
		if o.ID == id {
			return o, true
		}
	}
	return host.GameObject{}, false
}

// PlayerState is a fixed local player identity.
type PlayerState struct {
	Name    string
	WorldID uint32
}

func (p PlayerState) CharacterName() string { return p.Name }
func (p PlayerState) HomeWorldID() uint32   { return p.WorldID }

// TargetManager records target changes.
type TargetManager struct {
	mu        sync.Mutex
	target    uint64
	hasTarget bool
	// History records every SetTarget/ClearTarget call, zero meaning
	// cleared.
	History []uint64
}

func (m *TargetManager) CurrentTarget() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target, m.hasTarget
}

func (m *TargetManager) SetTarget(obj host.GameObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = obj.ID
	m.hasTarget = true
	m.History = append(m.History, obj.ID)
}

func (m *TargetManager) ClearTarget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasTarget = false
	m.History = append(m.History, 0)
}

// EmoteAgent is a scriptable emote execution agent.
type EmoteAgent struct {
	mu          sync.Mutex
	LoggedInVal bool
	Available   map[uint16]bool
	ExecuteErr  error
	// Executed records (emoteID, addToHistory) pairs.
	Executed []ExecutedEmote
}

type ExecutedEmote struct {
	EmoteID      uint16
	AddToHistory bool
}

func NewEmoteAgent() *EmoteAgent {
	return &EmoteAgent{LoggedInVal: true, Available: map[uint16]bool{}}
}

func (a *EmoteAgent) LoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.LoggedInVal
}

func (a *EmoteAgent) CanUseEmote(emoteID uint16) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Available[emoteID]
}

func (a *EmoteAgent) ExecuteEmote(emoteID uint16, addToHistory bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ExecuteErr != nil {
		return a.ExecuteErr
	}
	a.Executed = append(a.Executed, ExecutedEmote{EmoteID: emoteID, AddToHistory: addToHistory})
	return nil
}

// GameConfig is an in-memory UI config store.
type GameConfig struct {
	mu    sync.Mutex
	Bools map[string]bool
}

func NewGameConfig() *GameConfig { return &GameConfig{Bools: map[string]bool{}} }

func (c *GameConfig) UIBool(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.Bools[key]
	if !ok {
		return false, fmt.Errorf("unknown ui config key %q", key)
	}
	return v, nil
}

func (c *GameConfig) SetUIBool(key string, value bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Bools[key] = value
	return nil
}

// Condition is a settable condition flag source.
type Condition struct {
	mu     sync.Mutex
	combat bool
}

func (c *Condition) SetInCombat(v bool) {
	c.mu.Lock()
	c.combat = v
	c.mu.Unlock()
}

func (c *Condition) InCombat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combat
}

// SoundPlayer records played sound ids.
type SoundPlayer struct {
	mu     sync.Mutex
	Played []uint32
}

func (p *SoundPlayer) PlayChatSound(id uint32) {
	p.mu.Lock()
	p.Played = append(p.Played, id)
	p.mu.Unlock()
}

// ChatGui captures printed messages and lets tests drive inbound lines
// and link clicks.
type ChatGui struct {
	mu       sync.Mutex
	Printed  []host.ChatEntry
	handlers []chatHandler
	nextID   int
	Links    map[uint32]host.LinkHandler
}

type chatHandler struct {
	id int
	fn host.MessageHandler
}

func NewChatGui() *ChatGui { return &ChatGui{Links: map[uint32]host.LinkHandler{}} }

func (g *ChatGui) Print(entry host.ChatEntry) {
	g.mu.Lock()
	g.Printed = append(g.Printed, entry)
	g.mu.Unlock()
}

func (g *ChatGui) RegisterMessageHandler(h host.MessageHandler) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.handlers = append(g.handlers, chatHandler{id: id, fn: h})
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, hh := range g.handlers {
			if hh.id == id {
				g.handlers = append(g.handlers[:i], g.handlers[i+1:]...)
				return
			}
		}
	}
}

func (g *ChatGui) AddLinkHandler(commandID uint32, h host.LinkHandler) {
	g.mu.Lock()
	g.Links[commandID] = h
	g.mu.Unlock()
}

func (g *ChatGui) RemoveLinkHandler(commandID uint32) {
	g.mu.Lock()
	delete(g.Links, commandID)
	g.mu.Unlock()
}

// EmitMessage delivers an inbound line to every registered handler and
// reports whether any handler suppressed it.
func (g *ChatGui) EmitMessage(channel host.Channel, timestamp int32, sender, message host.Message) bool {
	g.mu.Lock()
	handlers := make([]chatHandler, len(g.handlers))
	copy(handlers, g.handlers)
	g.mu.Unlock()

	handled := false
	for _, h := range handlers {
		h.fn(channel, timestamp, &sender, &message, &handled)
	}
	return handled
}

// ClickLink dispatches a click on a registered link handle.
func (g *ChatGui) ClickLink(commandID uint32, source host.Message) bool {
	g.mu.Lock()
	h, ok := g.Links[commandID]
	g.mu.Unlock()
	if !ok {
		return false
	}
	h(commandID, source)
	return true
}

// LastPrinted returns the most recent printed entry.
func (g *ChatGui) LastPrinted() (host.ChatEntry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Printed) == 0 {
		return host.ChatEntry{}, false
	}
	return g.Printed[len(g.Printed)-1], true
}

// EmoteHook is the fake detour handle HookEmote returns.
type EmoteHook struct {
	mu       sync.Mutex
	detour   host.EmoteHookFunc
	Enabled  bool
	Disposed bool
	// OriginalCalls records every pass-through to the original function.
	OriginalCalls []EmoteHookCall
}

type EmoteHookCall struct {
	EventKind     uint64
	InitiatorAddr uintptr
	EmoteID       uint16
	TargetID      uint64
	A5            uint64
}

func (h *EmoteHook) Original(eventKind uint64, initiatorAddr uintptr, emoteID uint16, targetID uint64, a5 uint64) {
	h.mu.Lock()
	h.OriginalCalls = append(h.OriginalCalls, EmoteHookCall{eventKind, initiatorAddr, emoteID, targetID, a5})
	h.mu.Unlock()
}

func (h *EmoteHook) Enable()  { h.Enabled = true }
func (h *EmoteHook) Dispose() { h.Disposed = true }

// Fire invokes the installed detour as the engine would.
func (h *EmoteHook) Fire(eventKind uint64, initiatorAddr uintptr, emoteID uint16, targetID uint64, a5 uint64) {
	h.detour(eventKind, initiatorAddr, emoteID, targetID, a5)
}

// TargetHook is the fake detour handle HookTarget returns.
type TargetHook struct {
	mu            sync.Mutex
	detour        host.TargetHookFunc
	Enabled       bool
	Disposed      bool
	OriginalCalls []TargetHookCall
}

type TargetHookCall struct {
	TargeterAddr uintptr
	TargetID     uint64
}

func (h *TargetHook) Original(targeterAddr uintptr, targetID uint64) {
	h.mu.Lock()
	h.OriginalCalls = append(h.OriginalCalls, TargetHookCall{targeterAddr, targetID})
	h.mu.Unlock()
}

func (h *TargetHook) Enable()  { h.Enabled = true }
func (h *TargetHook) Dispose() { h.Disposed = true }

// Fire invokes the installed detour as the engine would.
func (h *TargetHook) Fire(targeterAddr uintptr, targetID uint64) {
	h.detour(targeterAddr, targetID)
}

// Interop hands out fake hooks, or errors when told to fail.
type Interop struct {
	FailEmote  bool
	FailTarget bool

	Emote  *EmoteHook
	Target *TargetHook
}

func (i *Interop) HookEmote(signature string, detour host.EmoteHookFunc) (host.EmoteHook, error) {
	if i.FailEmote {
		return nil, fmt.Errorf("signature not found: %s", signature)
	}
	i.Emote = &EmoteHook{detour: detour}
	return i.Emote, nil
}

func (i *Interop) HookTarget(signature string, detour host.TargetHookFunc) (host.TargetHook, error) {
	if i.FailTarget {
		return nil, fmt.Errorf("signature not found: %s", signature)
	}
	i.Target = &TargetHook{detour: detour}
	return i.Target, nil
}

// StaticData serves fixed table rows.
type StaticData struct {
	Emotes []host.EmoteRow
	Worlds []host.WorldRow
}

func (d StaticData) EmoteRows() []host.EmoteRow { return d.Emotes }
func (d StaticData) WorldRows() []host.WorldRow { return d.Worlds }

// CommandRouter records registered slash commands and lets tests invoke
// them.
type CommandRouter struct {
	mu       sync.Mutex
	Handlers map[string]host.CommandHandler
	Help     map[string]string
}

func NewCommandRouter() *CommandRouter {
	return &CommandRouter{Handlers: map[string]host.CommandHandler{}, Help: map[string]string{}}
}

func (r *CommandRouter) AddHandler(name, help string, h host.CommandHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Handlers[name]; ok {
		return fmt.Errorf("command %s already registered", name)
	}
	r.Handlers[name] = h
	r.Help[name] = help
	return nil
}

func (r *CommandRouter) RemoveHandler(name string) {
	r.mu.Lock()
	delete(r.Handlers, name)
	delete(r.Help, name)
	r.mu.Unlock()
}

// Invoke dispatches a command as the client would.
func (r *CommandRouter) Invoke(name, args string) bool {
	r.mu.Lock()
	h, ok := r.Handlers[name]
	r.mu.Unlock()
	if !ok {
		return false
	}
	h(name, args)
	return true
}
