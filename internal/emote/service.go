// Package emote ties the event pipeline together: it consumes decoded
// emote events, applies tracking and notification gating, composes the
// outbound chat message with optional replay links, suppresses the
// game's own duplicate chat line, and executes replays.
package emote

import (
	"context"
	"strings"
	"sync"
	"time"

	"ohhey/internal/config"
	"ohhey/internal/gamedata"
	"ohhey/internal/host"
	"ohhey/internal/journal"
	"ohhey/internal/listener"
	"ohhey/internal/ratelimit"
	"ohhey/internal/replaylink"
	"ohhey/internal/template"
	"ohhey/pkg/logx"
)

const (
	// ChatSenderName is shown as the sender on channels that render one.
	ChatSenderName = "OhHey"
	// MaxHistory bounds the debug history list.
	MaxHistory = 10
	// recentWindow bounds the live overlay buffer.
	recentWindow = 60 * time.Second

	prefixColor = 537
	nameColor   = 1
	linkColor   = 45
)

// Deps are the collaborators the service needs. Journal may be nil.
type Deps struct {
	Log        logx.Logger
	Config     func() *config.Document
	Data       *gamedata.Cache
	Previews   *template.PreviewCache
	Chat       host.ChatGui
	Player     host.PlayerState
	Condition  host.Condition
	Sound      host.SoundPlayer
	Targets    host.TargetManager
	Objects    host.ObjectTable
	Agent      host.EmoteAgent
	GameConfig host.GameConfig
	Journal    journal.Store
}

// Service is the notification composer / orchestrator.
type Service struct {
	log        logx.Logger
	cfg        func() *config.Document
	data       *gamedata.Cache
	previews   *template.PreviewCache
	chat       host.ChatGui
	player     host.PlayerState
	condition  host.Condition
	sound      host.SoundPlayer
	targets    host.TargetManager
	objects    host.ObjectTable
	agent      host.EmoteAgent
	gameConfig host.GameConfig
	journal    journal.Store

	limiter *ratelimit.Limiter
	links   *replaylink.Registry
	now     func() time.Time

	// mu guards history and recent. Both are written from the hook
	// callback path and read from the debug surface.
	mu      sync.Mutex
	history []listener.EmoteEvent // newest first, capped at MaxHistory
	recent  []listener.EmoteEvent // newest first, time-windowed

	replayMu   sync.Mutex
	lastReplay *ReplayAttempt

	unsubs []func()
}

// NewService wires the service and its owned rate limiter and replay
// link registry.
func NewService(deps Deps) *Service {
	s := &Service{
		log:        deps.Log,
		cfg:        deps.Config,
		data:       deps.Data,
		previews:   deps.Previews,
		chat:       deps.Chat,
		player:     deps.Player,
		condition:  deps.Condition,
		sound:      deps.Sound,
		targets:    deps.Targets,
		objects:    deps.Objects,
		agent:      deps.Agent,
		gameConfig: deps.GameConfig,
		journal:    deps.Journal,
		now:        time.Now,
	}
	s.limiter = ratelimit.New(s.rateLimitConfig, deps.Data.DisplayName, deps.Log)
	s.links = replaylink.New(deps.Chat, s.handleReplayClick, deps.Log)
	return s
}

// Attach subscribes to the event sources. A nil emote listener (hook
// attach failed) degrades emote detection but leaves the rest working.
func (s *Service) Attach(emotes *listener.EmoteListener, chat *listener.ChatListener) {
	if emotes != nil {
		s.unsubs = append(s.unsubs, emotes.Subscribe(s.onEmote))
	}
	if chat != nil {
		s.unsubs = append(s.unsubs, chat.Subscribe(s.onChatMessage))
	}
}

// Close unsubscribes and tears down the replay link pool.
func (s *Service) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.links.Close()
}

func (s *Service) rateLimitConfig() ratelimit.Config {
	rl := s.cfg().Settings.Emote.ChatRateLimit
	return ratelimit.Config{
		Enabled:       rl.Enabled,
		WindowSeconds: rl.WindowSeconds,
		MaxCount:      rl.MaxCount,
		Mode:          rl.Mode,
	}
}

func (s *Service) onEmote(e listener.EmoteEvent) {
	s.log.Debug("emote observed",
		logx.String("emote", s.data.DisplayName(e.EmoteID)),
		logx.Uint("emote_id", uint(e.EmoteID)),
		logx.String("initiator", e.InitiatorName),
		logx.Uint64("initiator_id", e.InitiatorID),
		logx.Uint64("target_id", e.TargetID))
	if !e.TargetSelf {
		return
	}
	if s.shouldTrack(e) {
		s.record(e)
	}
	s.notify(e)
}

func (s *Service) shouldTrack(e listener.EmoteEvent) bool {
	if !e.TargetSelf {
		return false
	}
	if !e.InitiatorIsSelf {
		return true
	}
	return s.cfg().Settings.Emote.ShowSelf
}

func (s *Service) record(e listener.EmoteEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) >= MaxHistory {
		s.history = s.history[:MaxHistory-1]
	}
	s.history = append([]listener.EmoteEvent{e}, s.history...)
	s.recent = append([]listener.EmoteEvent{e}, s.recent...)
	s.pruneRecentLocked(s.now())
}

func (s *Service) pruneRecentLocked(now time.Time) {
	threshold := now.Add(-recentWindow)
	for len(s.recent) > 0 && s.recent[len(s.recent)-1].Timestamp.Before(threshold) {
		s.recent = s.recent[:len(s.recent)-1]
	}
}

// History returns the capped debug history, newest first.
func (s *Service) History() []listener.EmoteEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]listener.EmoteEvent(nil), s.history...)
}

// Recent returns the live-overlay buffer pruned to the window, newest
// first.
func (s *Service) Recent() []listener.EmoteEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneRecentLocked(s.now())
	return append([]listener.EmoteEvent(nil), s.recent...)
}

func (s *Service) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// notify runs the gating chain and, if every gate admits, composes and
// prints the notification. Failing a gate is not an error.
func (s *Service) notify(e listener.EmoteEvent) {
	settings := s.cfg().Settings
	em := settings.Emote
	if !em.EnableNotifications {
		return
	}
	if e.InitiatorIsSelf && !em.NotifyOnSelf {
		return
	}
	if !em.EnableNotificationInCombat && s.condition.InCombat() {
		return
	}
	if !s.limiter.TryConsume(e.EmoteID) {
		s.journalEvent(e, true)
		return
	}

	displayName := s.data.DisplayName(e.EmoteID)
	b := host.NewMessageBuilder().
		AddColored("[Oh Hey!] ", prefixColor).
		AddPlayer(e.InitiatorName, e.InitiatorWorldID)

	if settings.NotificationDisplay.ShowWorldNameInChatNotifications &&
		s.player.HomeWorldID() != e.InitiatorWorldID {
		if worldName, ok := s.data.WorldName(e.InitiatorWorldID); ok && worldName != "" {
			b.AddIcon(host.IconCrossWorld).AddText(worldName)
		}
	}

	b.AddText(" used ").
		AddColored(displayName, nameColor).
		AddText(" on you!")

	if s.canShowReplayLink(e.EmoteID) {
		replayIdx := s.links.Create(e.InitiatorID, e.EmoteID, false)
		silentIdx := s.links.Create(e.InitiatorID, e.EmoteID, true)
		b.AddText(" ").
			StartLink(replayIdx).
			AddColored("["+displayName+"]", linkColor).
			EndLink().
			AddText(" ").
			StartLink(silentIdx).
			AddColored("[Silent "+displayName+"]", linkColor).
			EndLink()
	}

	s.printChat(em.NotificationChatType, b.Build())

	if em.EnableSoundNotification {
		s.sound.PlayChatSound(em.SoundNotificationID)
	}
	s.journalEvent(e, false)
}

func (s *Service) canShowReplayLink(emoteID uint16) bool {
	if !s.cfg().Settings.Emote.EnableReplayLinks {
		return false
	}
	return s.agent.LoggedIn() && s.agent.CanUseEmote(emoteID)
}

func (s *Service) journalEvent(e listener.EmoteEvent, suppressed bool) {
	if s.journal == nil {
		return
	}
	err := s.journal.Append(context.Background(), journal.Entry{
		At:              e.Timestamp,
		Kind:            journal.KindEmote,
		EmoteID:         e.EmoteID,
		EmoteName:       s.data.DisplayName(e.EmoteID),
		InitiatorID:     e.InitiatorID,
		InitiatorName:   e.InitiatorName,
		WorldID:         e.InitiatorWorldID,
		InitiatorIsSelf: e.InitiatorIsSelf,
		Suppressed:      suppressed,
	})
	if err != nil {
		s.log.Warn("journal append failed", logx.Err(err))
	}
}

func (s *Service) printChat(channel host.Channel, msg host.Message) {
	entry := host.ChatEntry{Channel: channel, Message: msg}
	if channel != host.ChannelNone && requiresChatSenderName(channel) {
		entry.SenderName = ChatSenderName
	}
	s.chat.Print(entry)
}

func requiresChatSenderName(channel host.Channel) bool {
	switch channel {
	case host.ChannelNotice, host.ChannelEcho, host.ChannelUrgent,
		host.ChannelSystemMessage, host.ChannelDebug:
		return false
	}
	return true
}

// onChatMessage suppresses the game's own rendered "standard emote"
// line when it duplicates a notification we already produced from the
// hook.
func (s *Service) onChatMessage(m listener.ChatMessage) {
	if *m.Handled {
		return
	}
	if m.Channel != host.ChannelStandardEmote {
		return
	}
	if !s.shouldSuppressRenderedLine() {
		return
	}

	senderText := m.Sender.TextValue()
	if playerName := s.player.CharacterName(); playerName != "" && senderText == playerName {
		return
	}

	msgText := m.Message.TextValue()
	// Fast pre-filter; lines about us contain the literal word.
	if !strings.Contains(strings.ToLower(msgText), "you") {
		return
	}

	normalized := normalizeForComparison(msgText)
	if normalized == "" {
		return
	}

	sender := senderNameFromMessage(m.Message, senderText)
	if isTargetedLineFromSender(s.previews.Previews(), normalized, sender) {
		*m.Handled = true
		s.log.Debug("suppressed rendered emote chat line", logx.String("message", msgText))
		return
	}

	s.log.Debug("unmatched standard emote chat line",
		logx.String("sender", senderText),
		logx.String("message", msgText),
		logx.String("normalized", normalized))
}

func (s *Service) shouldSuppressRenderedLine() bool {
	em := s.cfg().Settings.Emote
	if !em.EnableNotifications {
		return false
	}
	if !em.SuppressDuplicateTargetedChatLine {
		return false
	}
	if !em.EnableNotificationInCombat && s.condition.InCombat() {
		return false
	}
	return true
}

// DisplayName resolves an emote id for the debug surface.
func (s *Service) DisplayName(emoteID uint16) string {
	return s.data.DisplayName(emoteID)
}

// RateLimitStatus reads the limiter state without consuming a slot.
func (s *Service) RateLimitStatus() ratelimit.Status { return s.limiter.Status() }

// RateLimitReset clears the limiter state and counters.
func (s *Service) RateLimitReset() { s.limiter.Reset() }

// ReplayLinkSnapshot reads the replay link pool stats and entries.
func (s *Service) ReplayLinkSnapshot() (replaylink.Stats, []replaylink.Entry) {
	return s.links.Snapshot()
}
