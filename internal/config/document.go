// Package config owns the versioned settings document, its on-disk
// store, and a watching manager that publishes validated updates to
// subscribers.
package config

import (
	"fmt"

	"ohhey/internal/host"
	"ohhey/internal/ratelimit"
)

// CurrentVersion is the schema version new documents are written at.
const CurrentVersion = 2

// Document is the persisted settings schema. Older documents are
// migrated in place to the current version before first use; the legacy
// v0 root fields and the v1 bucket exist only so old files still
// decode.
type Document struct {
	Version int `json:"version"`

	Settings Settings `json:"settings"`

	Logging LoggingSettings `json:"logging,omitempty"`
	Journal JournalSettings `json:"journal,omitempty"`

	// V1 is the flat legacy bucket written by v1 documents.
	V1 *V1Legacy `json:"v1,omitempty"`

	// Legacy v0 root fields.
	EnableTargetNotifications        *bool           `json:"enable_target_notifications,omitempty"`
	TargetNotificationChatType       *host.Channel   `json:"target_notification_chat_type,omitempty"`
	EnableTargetSoundNotification    *bool           `json:"enable_target_sound_notification,omitempty"`
	TargetSoundNotificationID        *uint32         `json:"target_sound_notification_id,omitempty"`
	ShowSelfTarget                   *bool           `json:"show_self_target,omitempty"`
	NotifyOnSelfTarget               *bool           `json:"notify_on_self_target,omitempty"`
	EnableTargetNotificationInCombat *bool           `json:"enable_target_notification_in_combat,omitempty"`
	EnableEmoteNotifications         *bool           `json:"enable_emote_notifications,omitempty"`
	EmoteNotificationChatType        *host.Channel   `json:"emote_notification_chat_type,omitempty"`
	EnableEmoteSoundNotification     *bool           `json:"enable_emote_sound_notification,omitempty"`
	EmoteSoundNotificationID         *uint32         `json:"emote_sound_notification_id,omitempty"`
	ShowSelfEmote                    *bool           `json:"show_self_emote,omitempty"`
	NotifyOnSelfEmote                *bool           `json:"notify_on_self_emote,omitempty"`
	EnableEmoteNotificationInCombat  *bool           `json:"enable_emote_notification_in_combat,omitempty"`
	EnableEmoteChatRateLimit         *bool           `json:"enable_emote_chat_notification_rate_limit,omitempty"`
	EmoteChatRateLimitWindowSeconds  *int            `json:"emote_chat_notification_rate_limit_window_seconds,omitempty"`
	EmoteChatRateLimitMaxCount       *int            `json:"emote_chat_notification_rate_limit_max_count,omitempty"`
	EmoteChatRateLimitMode           *ratelimit.Mode `json:"emote_chat_notification_rate_limit_mode,omitempty"`
	ShowWorldNameInChatNotifications *bool           `json:"show_world_name_in_chat_notifications,omitempty"`
}

// Settings is the current nested settings shape.
type Settings struct {
	General             GeneralSettings             `json:"general"`
	Target              TargetSettings              `json:"target"`
	Emote               EmoteSettings               `json:"emote"`
	NotificationDisplay NotificationDisplaySettings `json:"notification_display"`
}

type GeneralSettings struct {
	EnableMainWindowCloseHotkey bool `json:"enable_main_window_close_hotkey"`
}

type TargetSettings struct {
	EnableNotifications        bool         `json:"enable_notifications"`
	NotificationChatType       host.Channel `json:"notification_chat_type"`
	EnableSoundNotification    bool         `json:"enable_sound_notification"`
	SoundNotificationID        uint32       `json:"sound_notification_id"`
	ShowSelf                   bool         `json:"show_self"`
	NotifyOnSelf               bool         `json:"notify_on_self"`
	EnableNotificationInCombat bool         `json:"enable_notification_in_combat"`
}

type EmoteSettings struct {
	EnableNotifications               bool              `json:"enable_notifications"`
	NotificationChatType              host.Channel      `json:"notification_chat_type"`
	SuppressDuplicateTargetedChatLine bool              `json:"suppress_duplicate_targeted_chat_line"`
	EnableSoundNotification           bool              `json:"enable_sound_notification"`
	SoundNotificationID               uint32            `json:"sound_notification_id"`
	ShowSelf                          bool              `json:"show_self"`
	NotifyOnSelf                      bool              `json:"notify_on_self"`
	EnableNotificationInCombat        bool              `json:"enable_notification_in_combat"`
	EnableReplayLinks                 bool              `json:"enable_replay_links"`
	ChatRateLimit                     RateLimitSettings `json:"chat_rate_limit"`
}

type RateLimitSettings struct {
	Enabled       bool           `json:"enabled"`
	WindowSeconds int            `json:"window_seconds"`
	MaxCount      int            `json:"max_count"`
	Mode          ratelimit.Mode `json:"mode"`
}

type NotificationDisplaySettings struct {
	ShowWorldNameInChatNotifications bool `json:"show_world_name_in_chat_notifications"`
}

// LoggingSettings feeds pkg/logx.
type LoggingSettings struct {
	Level   string              `json:"level,omitempty"`
	Console bool                `json:"console,omitempty"`
	Chat    ChatLoggingSettings `json:"chat,omitempty"`
}

type ChatLoggingSettings struct {
	Enabled    bool    `json:"enabled,omitempty"`
	MinLevel   string  `json:"min_level,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
}

// JournalSettings selects the optional event journal driver.
type JournalSettings struct {
	Enabled bool   `json:"enabled,omitempty"`
	Driver  string `json:"driver,omitempty"` // "file" or "sqlite"
	Path    string `json:"path,omitempty"`
}

// V1Legacy is the flat settings bucket v1 documents carried.
type V1Legacy struct {
	EnableTargetNotifications        bool           `json:"enable_target_notifications"`
	TargetNotificationChatType       host.Channel   `json:"target_notification_chat_type"`
	EnableTargetSoundNotification    bool           `json:"enable_target_sound_notification"`
	TargetSoundNotificationID        uint32         `json:"target_sound_notification_id"`
	ShowSelfTarget                   bool           `json:"show_self_target"`
	NotifyOnSelfTarget               bool           `json:"notify_on_self_target"`
	EnableTargetNotificationInCombat bool           `json:"enable_target_notification_in_combat"`
	EnableEmoteNotifications         bool           `json:"enable_emote_notifications"`
	EmoteNotificationChatType        host.Channel   `json:"emote_notification_chat_type"`
	EnableEmoteSoundNotification     bool           `json:"enable_emote_sound_notification"`
	EmoteSoundNotificationID         uint32         `json:"emote_sound_notification_id"`
	ShowSelfEmote                    bool           `json:"show_self_emote"`
	NotifyOnSelfEmote                bool           `json:"notify_on_self_emote"`
	EnableEmoteNotificationInCombat  bool           `json:"enable_emote_notification_in_combat"`
	EnableEmoteChatRateLimit         bool           `json:"enable_emote_chat_notification_rate_limit"`
	EmoteChatRateLimitWindowSeconds  int            `json:"emote_chat_notification_rate_limit_window_seconds"`
	EmoteChatRateLimitMaxCount       int            `json:"emote_chat_notification_rate_limit_max_count"`
	EmoteChatRateLimitMode           ratelimit.Mode `json:"emote_chat_notification_rate_limit_mode"`
	ShowWorldNameInChatNotifications bool           `json:"show_world_name_in_chat_notifications"`
}

// Default returns a document with current-version defaults.
func Default() *Document {
	return &Document{
		Version: CurrentVersion,
		Settings: Settings{
			Target: TargetSettings{
				EnableNotifications:  true,
				NotificationChatType: host.ChannelSystemMessage,
				SoundNotificationID:  1,
			},
			Emote: EmoteSettings{
				EnableNotifications:               true,
				NotificationChatType:              host.ChannelSystemMessage,
				SuppressDuplicateTargetedChatLine: true,
				SoundNotificationID:               1,
				ShowSelf:                          true,
				NotifyOnSelf:                      true,
				EnableNotificationInCombat:        true,
				EnableReplayLinks:                 true,
				ChatRateLimit: RateLimitSettings{
					Enabled:       true,
					WindowSeconds: 5,
					MaxCount:      5,
					Mode:          ratelimit.ModeFixedWindow,
				},
			},
			NotificationDisplay: NotificationDisplaySettings{
				ShowWorldNameInChatNotifications: true,
			},
		},
		Logging: LoggingSettings{Level: "info", Console: true},
	}
}

// Migrate upgrades d in place to the current version. Migration is
// monotonic, one version at a time, and idempotent: a current document
// passes through unchanged.
func (d *Document) Migrate() {
	if d.Version <= 0 {
		d.migrateV0ToV1()
		d.Version = 1
	}
	if d.Version == 1 {
		d.migrateV1ToV2()
		d.Version = 2
	}
}

// migrateV0ToV1 folds loose root fields into the v1 bucket, taking v0
// defaults for anything the file did not carry.
func (d *Document) migrateV0ToV1() {
	v1 := &V1Legacy{
		EnableTargetNotifications:        boolOr(d.EnableTargetNotifications, true),
		TargetNotificationChatType:       channelOr(d.TargetNotificationChatType, host.ChannelEcho),
		EnableTargetSoundNotification:    boolOr(d.EnableTargetSoundNotification, false),
		TargetSoundNotificationID:        uint32Or(d.TargetSoundNotificationID, 1),
		ShowSelfTarget:                   boolOr(d.ShowSelfTarget, true),
		NotifyOnSelfTarget:               boolOr(d.NotifyOnSelfTarget, false),
		EnableTargetNotificationInCombat: boolOr(d.EnableTargetNotificationInCombat, false),
		EnableEmoteNotifications:         boolOr(d.EnableEmoteNotifications, true),
		EmoteNotificationChatType:        channelOr(d.EmoteNotificationChatType, host.ChannelEcho),
		EnableEmoteSoundNotification:     boolOr(d.EnableEmoteSoundNotification, false),
		EmoteSoundNotificationID:         uint32Or(d.EmoteSoundNotificationID, 1),
		ShowSelfEmote:                    boolOr(d.ShowSelfEmote, false),
		NotifyOnSelfEmote:                boolOr(d.NotifyOnSelfEmote, false),
		EnableEmoteNotificationInCombat:  boolOr(d.EnableEmoteNotificationInCombat, true),
		EnableEmoteChatRateLimit:         boolOr(d.EnableEmoteChatRateLimit, false),
		EmoteChatRateLimitWindowSeconds:  intOr(d.EmoteChatRateLimitWindowSeconds, 5),
		EmoteChatRateLimitMaxCount:       intOr(d.EmoteChatRateLimitMaxCount, 5),
		ShowWorldNameInChatNotifications: boolOr(d.ShowWorldNameInChatNotifications, true),
	}
	if d.EmoteChatRateLimitMode != nil {
		v1.EmoteChatRateLimitMode = *d.EmoteChatRateLimitMode
	} else {
		v1.EmoteChatRateLimitMode = ratelimit.ModeFixedWindow
	}
	d.V1 = v1
	d.clearV0Fields()
}

// migrateV1ToV2 lifts the flat v1 bucket into the nested settings.
func (d *Document) migrateV1ToV2() {
	def := Default()
	if d.V1 == nil {
		d.Settings = def.Settings
		return
	}
	v1 := d.V1
	d.Settings = Settings{
		General: GeneralSettings{},
		Target: TargetSettings{
			EnableNotifications:        v1.EnableTargetNotifications,
			NotificationChatType:       v1.TargetNotificationChatType,
			EnableSoundNotification:    v1.EnableTargetSoundNotification,
			SoundNotificationID:        v1.TargetSoundNotificationID,
			ShowSelf:                   v1.ShowSelfTarget,
			NotifyOnSelf:               v1.NotifyOnSelfTarget,
			EnableNotificationInCombat: v1.EnableTargetNotificationInCombat,
		},
		Emote: EmoteSettings{
			EnableNotifications:               v1.EnableEmoteNotifications,
			NotificationChatType:              v1.EmoteNotificationChatType,
			SuppressDuplicateTargetedChatLine: def.Settings.Emote.SuppressDuplicateTargetedChatLine,
			EnableSoundNotification:           v1.EnableEmoteSoundNotification,
			SoundNotificationID:               v1.EmoteSoundNotificationID,
			ShowSelf:                          v1.ShowSelfEmote,
			NotifyOnSelf:                      v1.NotifyOnSelfEmote,
			EnableNotificationInCombat:        v1.EnableEmoteNotificationInCombat,
			EnableReplayLinks:                 def.Settings.Emote.EnableReplayLinks,
			ChatRateLimit: RateLimitSettings{
				Enabled:       v1.EnableEmoteChatRateLimit,
				WindowSeconds: v1.EmoteChatRateLimitWindowSeconds,
				MaxCount:      v1.EmoteChatRateLimitMaxCount,
				Mode:          v1.EmoteChatRateLimitMode,
			},
		},
		NotificationDisplay: NotificationDisplaySettings{
			ShowWorldNameInChatNotifications: v1.ShowWorldNameInChatNotifications,
		},
	}
	d.V1 = nil
}

func (d *Document) clearV0Fields() {
	d.EnableTargetNotifications = nil
	d.TargetNotificationChatType = nil
	d.EnableTargetSoundNotification = nil
	d.TargetSoundNotificationID = nil
	d.ShowSelfTarget = nil
	d.NotifyOnSelfTarget = nil
	d.EnableTargetNotificationInCombat = nil
	d.EnableEmoteNotifications = nil
	d.EmoteNotificationChatType = nil
	d.EnableEmoteSoundNotification = nil
	d.EmoteSoundNotificationID = nil
	d.ShowSelfEmote = nil
	d.NotifyOnSelfEmote = nil
	d.EnableEmoteNotificationInCombat = nil
	d.EnableEmoteChatRateLimit = nil
	d.EmoteChatRateLimitWindowSeconds = nil
	d.EmoteChatRateLimitMaxCount = nil
	d.EmoteChatRateLimitMode = nil
	d.ShowWorldNameInChatNotifications = nil
}

// Validate rejects documents that cannot be acted on. The rate-limit
// bounds are clamped at read time by the limiter, so only structural
// problems fail here.
func (d *Document) Validate() error {
	if d.Version != CurrentVersion {
		return fmt.Errorf("config: unsupported version %d (want %d)", d.Version, CurrentVersion)
	}
	if rl := d.Settings.Emote.ChatRateLimit; rl.WindowSeconds < 0 || rl.MaxCount < 0 {
		return fmt.Errorf("config: negative rate limit bounds (window=%d max=%d)", rl.WindowSeconds, rl.MaxCount)
	}
	if m := d.Settings.Emote.ChatRateLimit.Mode; m != ratelimit.ModeRollingWindow && m != ratelimit.ModeFixedWindow {
		return fmt.Errorf("config: unknown rate limit mode %d", m)
	}
	switch d.Journal.Driver {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("config: unknown journal driver %q", d.Journal.Driver)
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func uint32Or(p *uint32, def uint32) uint32 {
	if p != nil {
		return *p
	}
	return def
}

func channelOr(p *host.Channel, def host.Channel) host.Channel {
	if p != nil {
		return *p
	}
	return def
}
