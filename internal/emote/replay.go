package emote

import (
	"fmt"
	"time"

	"ohhey/internal/host"
	"ohhey/internal/listener"
	"ohhey/internal/replaylink"
	"ohhey/pkg/logx"
)

// emoteTextTypeKey is the client UI switch for the self emote log line.
// Silent replays turn it off around execution.
const emoteTextTypeKey = "EmoteTextType"

// ReplayAttempt records the last replay execution for the debug view.
type ReplayAttempt struct {
	At                     time.Time
	EmoteID                uint16
	RequestedTargetID      *uint64
	ResolvedTargetID       *uint64
	PreviousTargetID       *uint64
	ChangedTarget          bool
	RestoredPreviousTarget bool
	ClearedTarget          bool
	Executed               bool
	Status                 string
	Silent                 bool
}

// LastReplay returns the most recent replay attempt, if any.
func (s *Service) LastReplay() (ReplayAttempt, bool) {
	s.replayMu.Lock()
	defer s.replayMu.Unlock()
	if s.lastReplay == nil {
		return ReplayAttempt{}, false
	}
	return *s.lastReplay, true
}

// ReplayEmote re-executes a previously observed emote without
// retargeting.
func (s *Service) ReplayEmote(e listener.EmoteEvent) {
	s.replayEmoteByID(e.EmoteID, nil, false)
}

// TryUseEmoteIfAvailable is the manual debug trigger: replay an emote
// id if it is currently usable, silently skip otherwise.
func (s *Service) TryUseEmoteIfAvailable(emoteID uint16) {
	if !s.agent.LoggedIn() || !s.agent.CanUseEmote(emoteID) {
		return
	}
	s.replayEmoteByID(emoteID, nil, false)
}

func (s *Service) handleReplayClick(ev replaylink.ClickEvent) {
	target := ev.InitiatorID
	s.replayEmoteByID(ev.EmoteID, &target, ev.Silent)
}

// replayEmoteByID runs the replay state machine: optional retarget,
// preflight, execute, then guaranteed restore of the silence toggle and
// previous target regardless of how execution went.
func (s *Service) replayEmoteByID(emoteID uint16, targetObjectID *uint64, silent bool) {
	if !s.agent.LoggedIn() {
		return
	}

	attempt := ReplayAttempt{
		At:      s.now(),
		EmoteID: emoteID,
		Silent:  silent,
		Status:  "ok",
	}
	if prev, ok := s.targets.CurrentTarget(); ok {
		attempt.PreviousTargetID = &prev
	}
	attempt.RequestedTargetID = targetObjectID

	if targetObjectID != nil {
		if target, ok := s.objects.SearchByID(*targetObjectID); ok {
			attempt.ChangedTarget = attempt.PreviousTargetID == nil || *attempt.PreviousTargetID != target.ID
			id := target.ID
			attempt.ResolvedTargetID = &id
			s.targets.SetTarget(target)
		} else {
			s.log.Warn("replay target not found; replaying without retarget",
				logx.Uint64("target_id", *targetObjectID))
			attempt.Status = "target-not-found"
		}
	}

	restoredTextType := false
	textTypeBefore := false
	if silent {
		if v, err := s.gameConfig.UIBool(emoteTextTypeKey); err == nil && v {
			textTypeBefore = true
			if err := s.gameConfig.SetUIBool(emoteTextTypeKey, false); err == nil {
				restoredTextType = true
			}
		}
	}

	defer func() {
		if restoredTextType {
			if err := s.gameConfig.SetUIBool(emoteTextTypeKey, textTypeBefore); err != nil {
				s.log.Warn("failed to restore emote text type", logx.Err(err))
			}
		}

		if attempt.ChangedTarget {
			if attempt.PreviousTargetID != nil {
				if prev, ok := s.objects.SearchByID(*attempt.PreviousTargetID); ok {
					s.targets.SetTarget(prev)
					attempt.RestoredPreviousTarget = true
				} else {
					s.targets.ClearTarget()
					attempt.Status = "previous-target-missing"
				}
			} else {
				s.targets.ClearTarget()
				attempt.ClearedTarget = true
			}
		}

		s.replayMu.Lock()
		s.lastReplay = &attempt
		s.replayMu.Unlock()
	}()

	if !s.agent.CanUseEmote(emoteID) {
		s.log.Warn("emote not available for replay", logx.Uint("emote_id", uint(emoteID)))
		s.chat.Print(host.ChatEntry{Message: host.NewMessageBuilder().
			AddColored("Cannot replay emote: ", prefixColor).
			AddText(fmt.Sprintf("Emote ID %d is not available.", emoteID)).
			Build()})
		attempt.Status = "emote-not-available"
		return
	}

	if err := s.agent.ExecuteEmote(emoteID, false); err != nil {
		s.log.Error("emote replay failed", logx.Uint("emote_id", uint(emoteID)), logx.Err(err))
		attempt.Status = "error:" + err.Error()
		return
	}
	attempt.Executed = true
}
