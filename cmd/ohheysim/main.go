// Command ohheysim runs the add-on pipeline against in-memory host
// fakes, driving a scripted scenario on a cron schedule and mirroring
// the fake chat sink to stdout. It exists to exercise the whole wiring
// outside a game client: hooks, notifications, suppression, replay
// links, config hot reload, and the event journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"ohhey/internal/addon"
	"ohhey/internal/config"
	"ohhey/internal/host"
	"ohhey/internal/host/hosttest"
)

func main() {
	var dir string
	var runFor time.Duration
	flag.StringVar(&dir, "dir", "", "working directory for config and journal (default: a temp dir)")
	flag.DurationVar(&runFor, "for", 30*time.Second, "how long to run the scenario")
	flag.Parse()

	if err := run(dir, runFor); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(dir string, runFor time.Duration) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if dir == "" {
		tmp, err := os.MkdirTemp("", "ohheysim-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	world := newWorld(dir)

	a, err := addon.New(world.host(), addon.Options{
		ConfigStore: config.NewFileStore(filepath.Join(dir, "ohhey.yaml")),
	})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop(context.Background())

	// Enable the file journal so the scenario exercises it.
	doc := a.Config().Get()
	doc.Journal.Enabled = true
	doc.Journal.Driver = "file"
	doc.Journal.Path = filepath.Join(dir, "journal.jsonl")
	if err := a.Config().Save(doc); err != nil {
		return err
	}

	fmt.Printf("simulating in %s for %s\n", dir, runFor)
	world.schedule(a)
	world.cron.Start()
	defer world.cron.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(runFor):
	}

	world.report(a)
	return nil
}

// world owns the fakes and the scripted actors.
type world struct {
	dir     string
	cron    *cron.Cron
	chat    *echoChat
	interop *hosttest.Interop
	objects *hosttest.ObjectTable
	agent   *hosttest.EmoteAgent
	router  *hosttest.CommandRouter
	actors  []host.GameObject
	turn    int
}

func newWorld(dir string) *world {
	w := &world{
		dir:     dir,
		cron:    cron.New(cron.WithSeconds()),
		chat:    &echoChat{ChatGui: hosttest.NewChatGui()},
		interop: &hosttest.Interop{},
		objects: hosttest.NewObjectTable(),
		agent:   hosttest.NewEmoteAgent(),
		router:  hosttest.NewCommandRouter(),
	}
	w.objects.SetLocalPlayer(host.GameObject{ID: 100, Address: 0x1000, Name: "Aster Vale", Kind: host.ObjectKindPlayer, HomeWorldID: 10})
	w.actors = []host.GameObject{
		{ID: 200, Address: 0x2000, Name: "Bob Brightwood", Kind: host.ObjectKindPlayer, HomeWorldID: 11},
		{ID: 201, Address: 0x2100, Name: "Cara Dawn", Kind: host.ObjectKindPlayer, HomeWorldID: 10},
		{ID: 202, Address: 0x2200, Name: "Dahlia Moteshade", Kind: host.ObjectKindPlayer, HomeWorldID: 12},
	}
	for _, actor := range w.actors {
		w.objects.Add(actor)
	}
	w.agent.Available[42] = true
	w.agent.Available[7] = true
	return w
}

func (w *world) host() addon.Host {
	return addon.Host{
		Interop:    w.interop,
		Objects:    w.objects,
		Player:     hosttest.PlayerState{Name: "Aster Vale", WorldID: 10},
		Targets:    &hosttest.TargetManager{},
		EmoteAgent: w.agent,
		GameConfig: hosttest.NewGameConfig(),
		Condition:  &hosttest.Condition{},
		Sound:      &hosttest.SoundPlayer{},
		Chat:       w.chat,
		Static:     staticData(),
		Commands:   w.router,
	}
}

func (w *world) schedule(a *addon.Addon) {
	// A rotating actor uses an emote on the local player.
	w.cron.AddFunc("*/2 * * * * *", func() {
		actor := w.actors[w.turn%len(w.actors)]
		emoteID := uint16(42)
		if w.turn%2 == 1 {
			emoteID = 7
		}
		w.turn++
		w.interop.Emote.Fire(1, actor.Address, emoteID, 100, 0)
		// The client renders its own log line right after; the add-on
		// should suppress the duplicate.
		line := host.Message{Segments: []host.Segment{
			{Kind: host.SegmentPlayer, Text: actor.Name, WorldID: actor.HomeWorldID},
			{Kind: host.SegmentText, Text: emoteLine(emoteID)},
		}}
		sender := host.Text(actor.Name)
		if !w.chat.EmitMessage(host.ChannelStandardEmote, int32(time.Now().Unix()), sender, line) {
			fmt.Printf("  (rendered line NOT suppressed: %s%s)\n", actor.Name, emoteLine(emoteID))
		}
	})

	// Target acquisition and release.
	w.cron.AddFunc("*/5 * * * * *", func() {
		actor := w.actors[w.turn%len(w.actors)]
		w.interop.Target.Fire(actor.Address, 100)
	})
	w.cron.AddFunc("7 * * * * *", func() {
		for _, actor := range w.actors {
			w.interop.Target.Fire(actor.Address, 0)
		}
	})

	// Click the newest replay link when one exists.
	w.cron.AddFunc("*/9 * * * * *", func() {
		_, entries := a.Emotes().ReplayLinkSnapshot()
		if len(entries) == 0 {
			return
		}
		w.chat.ClickLink(entries[0].CommandIndex, host.Message{})
	})

	// Hot-reload: flip the world-name display through the config file so
	// the fsnotify watch path runs, not just Save.
	w.cron.AddFunc("15 * * * * *", func() {
		doc := a.Config().Get()
		doc.Settings.NotificationDisplay.ShowWorldNameInChatNotifications =
			!doc.Settings.NotificationDisplay.ShowWorldNameInChatNotifications
		if err := a.Config().Save(doc); err != nil {
			fmt.Println("  (config save failed:", err, ")")
		}
	})

	// Exercise the command surface.
	w.cron.AddFunc("20 * * * * *", func() {
		w.router.Invoke("/ohhey", "status-nonsense")
	})
}

func (w *world) report(a *addon.Addon) {
	fmt.Println("---")
	status := a.Emotes().RateLimitStatus()
	fmt.Printf("rate limit: %d/%d used, %d suppressed\n",
		status.CurrentCount, status.MaxCount, status.SuppressedTotal)
	stats, _ := a.Emotes().ReplayLinkSnapshot()
	fmt.Printf("replay links: %d active, %d created, %d clicked\n",
		stats.ActiveCount, stats.Created, stats.Clicked)
	fmt.Printf("emote history: %d entries, target history: %d entries\n",
		len(a.Emotes().History()), len(a.Targets().History()))
	if data, err := os.ReadFile(filepath.Join(w.dir, "journal.jsonl")); err == nil {
		fmt.Printf("journal: %d bytes\n", len(data))
	}
}

func emoteLine(emoteID uint16) string {
	if emoteID == 7 {
		return " waves to you."
	}
	return " hugs you."
}

func staticData() hosttest.StaticData {
	return hosttest.StaticData{
		Emotes: []host.EmoteRow{
			{ID: 42, Icon: 4201, Name: "Hug", TargetedMessage: "<gstr2> hugs <gstr3>."},
			{ID: 7, Icon: 701, Name: "Wave", TargetedMessage: "<gstr2> waves to <gstr3>."},
		},
		Worlds: []host.WorldRow{
			{ID: 10, Name: "Balmung"},
			{ID: 11, Name: "Coeurl"},
			{ID: 12, Name: "Zalera"},
		},
	}
}

// echoChat mirrors everything the add-on prints to stdout.
type echoChat struct {
	*hosttest.ChatGui
}

func (c *echoChat) Print(entry host.ChatEntry) {
	c.ChatGui.Print(entry)
	sender := entry.SenderName
	if sender == "" {
		sender = "-"
	}
	fmt.Printf("[chat %d] %s: %s\n", entry.Channel, sender, entry.Message.TextValue())
}
