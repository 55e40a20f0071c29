// Package target tracks which actors currently target the local player
// and notifies when a new one starts.
package target

import (
	"context"
	"sync"
	"time"

	"ohhey/internal/config"
	"ohhey/internal/gamedata"
	"ohhey/internal/host"
	"ohhey/internal/journal"
	"ohhey/internal/listener"
	"ohhey/pkg/logx"
)

// ChatSenderName is the sender column value for channels that render one.
const ChatSenderName = "OhHey"

// MaxHistory caps the dropped-target history.
const MaxHistory = 10

const prefixColor = 537

// Deps are the collaborators the service needs. Journal may be nil.
type Deps struct {
	Log       logx.Logger
	Config    func() *config.Document
	Data      *gamedata.Cache
	Chat      host.ChatGui
	Player    host.PlayerState
	Condition host.Condition
	Sound     host.SoundPlayer
	Objects   host.ObjectTable
	Journal   journal.Store
}

// Service maintains the current-targeters list and the recently-dropped
// history, and composes the "is targeting you!" notification.
type Service struct {
	log       logx.Logger
	cfg       func() *config.Document
	data      *gamedata.Cache
	chat      host.ChatGui
	player    host.PlayerState
	condition host.Condition
	sound     host.SoundPlayer
	objects   host.ObjectTable
	journal   journal.Store
	now       func() time.Time

	// mu guards current and history. Both are written from the hook
	// callback path and read from the debug surface.
	mu      sync.Mutex
	current []listener.TargetEvent
	history []listener.TargetEvent // newest first, capped at MaxHistory

	unsubs []func()
}

func NewService(deps Deps) *Service {
	return &Service{
		log:       deps.Log,
		cfg:       deps.Config,
		data:      deps.Data,
		chat:      deps.Chat,
		player:    deps.Player,
		condition: deps.Condition,
		sound:     deps.Sound,
		objects:   deps.Objects,
		journal:   deps.Journal,
		now:       time.Now,
	}
}

// Attach subscribes to the target listener. A nil listener (hook attach
// failed) leaves the service inert.
func (s *Service) Attach(targets *listener.TargetListener) {
	if targets == nil {
		return
	}
	s.unsubs = append(s.unsubs,
		targets.SubscribeTargeted(s.onTarget),
		targets.SubscribeRemoved(s.onTargetRemoved))
}

func (s *Service) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *Service) onTarget(e listener.TargetEvent) {
	s.log.Debug("targeted",
		logx.String("name", e.Name),
		logx.Uint64("object_id", e.GameObjectID),
		logx.Bool("self", e.IsSelf))

	settings := s.cfg().Settings.Target

	s.mu.Lock()
	if s.indexOfCurrentLocked(e.GameObjectID) != -1 {
		s.mu.Unlock()
		s.log.Warn("duplicate target event",
			logx.String("name", e.Name),
			logx.Uint64("object_id", e.GameObjectID))
		return
	}
	if !e.IsSelf || settings.ShowSelf {
		// Re-targeting pulls the actor out of the dropped history; it
		// returns there with a fresh timestamp once it lets go.
		s.removeFromHistoryLocked(e.GameObjectID)
		s.current = append(s.current, e)
	}
	s.mu.Unlock()

	if !settings.EnableNotifications {
		return
	}
	if e.IsSelf && !settings.NotifyOnSelf {
		return
	}
	if !settings.EnableNotificationInCombat && s.condition.InCombat() {
		return
	}
	s.notify(e)
}

func (s *Service) onTargetRemoved(objectID uint64) {
	s.mu.Lock()
	idx := s.indexOfCurrentLocked(objectID)
	if idx == -1 {
		s.mu.Unlock()
		// Self-target removals arrive even when self tracking is off.
		if local, ok := s.objects.LocalPlayer(); ok && local.ID == objectID {
			return
		}
		s.log.Warn("target removed for unknown object", logx.Uint64("object_id", objectID))
		return
	}
	e := s.current[idx]
	s.current = append(s.current[:idx], s.current[idx+1:]...)
	s.pushToHistoryLocked(e)
	s.mu.Unlock()

	s.log.Debug("no longer targeted",
		logx.String("name", e.Name),
		logx.Uint64("object_id", e.GameObjectID),
		logx.Bool("self", e.IsSelf))
}

func (s *Service) indexOfCurrentLocked(objectID uint64) int {
	for i, t := range s.current {
		if t.GameObjectID == objectID {
			return i
		}
	}
	return -1
}

func (s *Service) removeFromHistoryLocked(objectID uint64) {
	for i, t := range s.history {
		if t.GameObjectID == objectID {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return
		}
	}
}

// pushToHistoryLocked records a dropped targeter newest-first with a
// refreshed timestamp, moving the entry when the actor is already there.
func (s *Service) pushToHistoryLocked(e listener.TargetEvent) {
	s.removeFromHistoryLocked(e.GameObjectID)
	e.Timestamp = s.now()
	if len(s.history) >= MaxHistory {
		s.history = s.history[:MaxHistory-1]
	}
	s.history = append([]listener.TargetEvent{e}, s.history...)
}

// CurrentTargets returns the actors currently targeting the local
// player, oldest first.
func (s *Service) CurrentTargets() []listener.TargetEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]listener.TargetEvent(nil), s.current...)
}

// History returns the dropped-target history, newest first.
func (s *Service) History() []listener.TargetEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]listener.TargetEvent(nil), s.history...)
}

func (s *Service) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

func (s *Service) notify(e listener.TargetEvent) {
	settings := s.cfg().Settings

	b := host.NewMessageBuilder().
		AddColored("[Oh Hey!] ", prefixColor).
		AddPlayer(e.Name, e.WorldID)

	if settings.NotificationDisplay.ShowWorldNameInChatNotifications &&
		s.player.HomeWorldID() != e.WorldID {
		if worldName, ok := s.data.WorldName(e.WorldID); ok && worldName != "" {
			b.AddIcon(host.IconCrossWorld).AddText(worldName)
		}
	}

	b.AddText(" is targeting you!")

	s.printChat(settings.Target.NotificationChatType, b.Build())

	if settings.Target.EnableSoundNotification {
		s.sound.PlayChatSound(settings.Target.SoundNotificationID)
	}
	s.journalEvent(e)
}

func (s *Service) journalEvent(e listener.TargetEvent) {
	if s.journal == nil {
		return
	}
	err := s.journal.Append(context.Background(), journal.Entry{
		At:              e.Timestamp,
		Kind:            journal.KindTarget,
		InitiatorID:     e.GameObjectID,
		InitiatorName:   e.Name,
		WorldID:         e.WorldID,
		InitiatorIsSelf: e.IsSelf,
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
