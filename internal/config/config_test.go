package config

import (
	"os"
	"path/filepath"
	"testing"

	"ohhey/internal/host"
	"ohhey/internal/ratelimit"
	"ohhey/pkg/logx"
)

func writeConfig(t *testing.T, name, content string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return NewFileStore(path)
}

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ohhey.yaml"))
	m := NewManager(store)
	m.SetLogger(logx.Nop())

	doc, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("version = %d, want %d", doc.Version, CurrentVersion)
	}
	if !doc.Settings.Emote.EnableNotifications {
		t.Fatal("default emote notifications not enabled")
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("defaults not persisted: %v", err)
	}
}

func TestParseYAMLDocument(t *testing.T) {
	store := writeConfig(t, "ohhey.yaml", `
version: 2
settings:
  target:
    enable_notifications: true
    notification_chat_type: 57
    sound_notification_id: 1
  emote:
    enable_notifications: true
    notification_chat_type: 56
    suppress_duplicate_targeted_chat_line: true
    sound_notification_id: 1
    show_self: false
    notify_on_self: false
    enable_notification_in_combat: true
    enable_replay_links: true
    chat_rate_limit:
      enabled: true
      window_seconds: 10
      max_count: 3
      mode: 1
  notification_display:
    show_world_name_in_chat_notifications: true
`)
	m := NewManager(store)

	doc, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Settings.Emote.NotificationChatType != host.ChannelEcho {
		t.Fatalf("emote chat type = %d, want %d", doc.Settings.Emote.NotificationChatType, host.ChannelEcho)
	}
	rl := doc.Settings.Emote.ChatRateLimit
	if rl.WindowSeconds != 10 || rl.MaxCount != 3 || rl.Mode != ratelimit.ModeFixedWindow {
		t.Fatalf("unexpected rate limit settings %+v", rl)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	store := writeConfig(t, "ohhey.json", `{"version": 2, "settings": {}, "bogus": true}`)
	m := NewManager(store)
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestMigrateV0ToCurrent(t *testing.T) {
	store := writeConfig(t, "ohhey.json", `{
  "version": 0,
  "enable_emote_notifications": true,
  "emote_notification_chat_type": 56,
  "show_self_emote": true,
  "enable_emote_chat_notification_rate_limit": true,
  "emote_chat_notification_rate_limit_window_seconds": 7,
  "emote_chat_notification_rate_limit_max_count": 2,
  "notify_on_self_target": true
}`)
	m := NewManager(store)

	doc, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("version = %d, want %d", doc.Version, CurrentVersion)
	}
	if doc.V1 != nil {
		t.Fatal("v1 bucket not cleared after migration to v2")
	}
	em := doc.Settings.Emote
	if !em.EnableNotifications || em.NotificationChatType != host.ChannelEcho || !em.ShowSelf {
		t.Fatalf("unexpected emote settings %+v", em)
	}
	if !em.ChatRateLimit.Enabled || em.ChatRateLimit.WindowSeconds != 7 || em.ChatRateLimit.MaxCount != 2 {
		t.Fatalf("unexpected rate limit settings %+v", em.ChatRateLimit)
	}
	if !doc.Settings.Target.NotifyOnSelf {
		t.Fatal("notify_on_self_target lost in migration")
	}
	// v0 fields the file did not carry take v0 defaults.
	if !doc.Settings.Target.ShowSelf {
		t.Fatal("show_self_target default not applied")
	}
}

func TestMigrateV1ToCurrent(t *testing.T) {
	store := writeConfig(t, "ohhey.json", `{
  "version": 1,
  "v1": {
    "enable_target_notifications": false,
    "target_notification_chat_type": 57,
    "enable_target_sound_notification": false,
    "target_sound_notification_id": 4,
    "show_self_target": false,
    "notify_on_self_target": false,
    "enable_target_notification_in_combat": false,
    "enable_emote_notifications": true,
    "emote_notification_chat_type": 57,
    "enable_emote_sound_notification": true,
    "emote_sound_notification_id": 9,
    "show_self_emote": true,
    "notify_on_self_emote": true,
    "enable_emote_notification_in_combat": true,
    "enable_emote_chat_notification_rate_limit": true,
    "emote_chat_notification_rate_limit_window_seconds": 5,
    "emote_chat_notification_rate_limit_max_count": 5,
    "emote_chat_notification_rate_limit_mode": 0,
    "show_world_name_in_chat_notifications": false
  }
}`)
	m := NewManager(store)

	doc, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Version != CurrentVersion || doc.V1 != nil {
		t.Fatalf("migration incomplete: version=%d v1=%v", doc.Version, doc.V1)
	}
	if doc.Settings.Target.EnableNotifications {
		t.Fatal("target notifications should be disabled")
	}
	if doc.Settings.Target.SoundNotificationID != 4 {
		t.Fatalf("target sound id = %d, want 4", doc.Settings.Target.SoundNotificationID)
	}
	if doc.Settings.Emote.SoundNotificationID != 9 || !doc.Settings.Emote.EnableSoundNotification {
		t.Fatalf("unexpected emote sound settings %+v", doc.Settings.Emote)
	}
	if doc.Settings.Emote.ChatRateLimit.Mode != ratelimit.ModeRollingWindow {
		t.Fatalf("mode = %d, want rolling", doc.Settings.Emote.ChatRateLimit.Mode)
	}
	if doc.Settings.NotificationDisplay.ShowWorldNameInChatNotifications {
		t.Fatal("world name display should be off")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	doc := Default()
	before := *doc
	doc.Migrate()
	if doc.Version != before.Version || doc.Settings != before.Settings {
		t.Fatalf("migrating a current document changed it: %+v", doc)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ohhey.yaml"))
	m := NewManager(store)

	doc := Default()
	doc.Settings.Emote.ChatRateLimit.WindowSeconds = 42
	if err := m.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewManager(store).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Settings.Emote.ChatRateLimit.WindowSeconds != 42 {
		t.Fatalf("window = %d, want 42", reloaded.Settings.Emote.ChatRateLimit.WindowSeconds)
	}
}

func TestSaveRejectsInvalidDocument(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ohhey.json"))
	m := NewManager(store)

	doc := Default()
	doc.Settings.Emote.ChatRateLimit.WindowSeconds = -1
	if err := m.Save(doc); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSubscribePublishOnSave(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "ohhey.json"))
	m := NewManager(store)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	if err := m.Save(Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	select {
	case doc := <-ch:
		if doc.Version != CurrentVersion {
			t.Fatalf("published version = %d", doc.Version)
		}
	default:
		t.Fatal("no update published")
	}
}

func TestValidateRejectsUnknownJournalDriver(t *testing.T) {
	doc := Default()
	doc.Journal.Driver = "redis"
	if err := doc.Validate(); err == nil {
		t.Fatal("expected journal driver error")
	}
}
