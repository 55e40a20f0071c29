package addon

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ohhey/internal/command"
	"ohhey/internal/config"
	"ohhey/internal/host"
	"ohhey/internal/host/hosttest"
)

type harness struct {
	addon   *Addon
	interop *hosttest.Interop
	chat    *hosttest.ChatGui
	router  *hosttest.CommandRouter
	objects *hosttest.ObjectTable
}

func newHarness(t *testing.T, interop *hosttest.Interop) *harness {
	t.Helper()

	h := &harness{
		interop: interop,
		chat:    hosttest.NewChatGui(),
		router:  hosttest.NewCommandRouter(),
		objects: hosttest.NewObjectTable(),
	}
	h.objects.SetLocalPlayer(host.GameObject{ID: 100, Address: 0x1000, Name: "Aster Vale", Kind: host.ObjectKindPlayer, HomeWorldID: 10})
	h.objects.Add(host.GameObject{ID: 200, Address: 0x2000, Name: "Bob Brightwood", Kind: host.ObjectKindPlayer, HomeWorldID: 11})

	static := hosttest.StaticData{
		Emotes: []host.EmoteRow{{ID: 42, Icon: 4201, Name: "Hug", TargetedMessage: "<gstr2> hugs <gstr3>."}},
		Worlds: []host.WorldRow{{ID: 10, Name: "Balmung"}, {ID: 11, Name: "Coeurl"}},
	}

	a, err := New(Host{
		Interop:    interop,
		Objects:    h.objects,
		Player:     hosttest.PlayerState{Name: "Aster Vale", WorldID: 10},
		Targets:    &hosttest.TargetManager{},
		EmoteAgent: hosttest.NewEmoteAgent(),
		GameConfig: hosttest.NewGameConfig(),
		Condition:  &hosttest.Condition{},
		Sound:      &hosttest.SoundPlayer{},
		Chat:       h.chat,
		Static:     static,
		Commands:   h.router,
	}, Options{
		ConfigStore: config.NewFileStore(filepath.Join(t.TempDir(), "ohhey.yaml")),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.addon = a
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return h
}

func TestNewWiresFullPipeline(t *testing.T) {
	h := newHarness(t, &hosttest.Interop{})

	if h.interop.Emote == nil || !h.interop.Emote.Enabled {
		t.Fatal("emote hook not installed")
	}
	if h.interop.Target == nil || !h.interop.Target.Enabled {
		t.Fatal("target hook not installed")
	}

	// An emote hook firing flows end to end into a chat notification.
	h.interop.Emote.Fire(1, 0x2000, 42, 100, 0)
	entry, ok := h.chat.LastPrinted()
	if !ok || !strings.Contains(entry.Message.TextValue(), "Hug") {
		t.Fatalf("expected emote notification, got %+v", entry)
	}
	if len(h.addon.Emotes().History()) != 1 {
		t.Fatal("emote not recorded")
	}

	// A target hook firing reaches the target service.
	h.interop.Target.Fire(0x2000, 100)
	if len(h.addon.Targets().CurrentTargets()) != 1 {
		t.Fatal("target not tracked")
	}
}

func TestCommandRegistered(t *testing.T) {
	h := newHarness(t, &hosttest.Interop{})

	if !h.router.Invoke(command.Name, "bogus") {
		t.Fatal("command not registered")
	}
	entry, ok := h.chat.LastPrinted()
	if !ok || !strings.Contains(entry.Message.TextValue(), "Chat Commands") {
		t.Fatal("help not printed")
	}
}

func TestEmoteHookFailureDegradesEmoteOnly(t *testing.T) {
	h := newHarness(t, &hosttest.Interop{FailEmote: true})

	if h.interop.Emote != nil {
		t.Fatal("emote hook unexpectedly installed")
	}
	// Target detection still works.
	h.interop.Target.Fire(0x2000, 100)
	if len(h.addon.Targets().CurrentTargets()) != 1 {
		t.Fatal("target feature degraded by emote hook failure")
	}
	// The command surface still works.
	if !h.router.Invoke(command.Name, "") {
		t.Fatal("command feature degraded by emote hook failure")
	}
}

func TestStopDisposesHooks(t *testing.T) {
	h := newHarness(t, &hosttest.Interop{})

	if err := h.addon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.addon.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if !h.interop.Emote.Disposed || !h.interop.Target.Disposed {
		t.Fatal("hooks not disposed on Stop")
	}
	if h.router.Invoke(command.Name, "") {
		t.Fatal("command still registered after Stop")
	}
}

func TestConfigDefaultsPersisted(t *testing.T) {
	h := newHarness(t, &hosttest.Interop{})

	doc := h.addon.Config().Get()
	if doc == nil || doc.Version != config.CurrentVersion {
		t.Fatalf("unexpected config document %+v", doc)
	}
	if !doc.Settings.Emote.EnableNotifications {
		t.Fatal("defaults not loaded")
	}
}
