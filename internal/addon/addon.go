// Package addon is the composition root a host loader drives: New wires
// every component against the host collaborator interfaces, Start
// begins config watching, Stop tears everything down in reverse.
package addon

import (
	"context"
	"fmt"
	"sync"

	"ohhey/internal/command"
	"ohhey/internal/config"
	"ohhey/internal/emote"
	"ohhey/internal/gamedata"
	"ohhey/internal/host"
	"ohhey/internal/journal"
	"ohhey/internal/listener"
	"ohhey/internal/target"
	"ohhey/internal/template"
	"ohhey/pkg/logx"
)

// Host bundles the collaborator interfaces the client hands to the
// add-on at load time.
type Host struct {
	Interop    host.Interop
	Objects    host.ObjectTable
	Player     host.PlayerState
	Targets    host.TargetManager
	EmoteAgent host.EmoteAgent
	GameConfig host.GameConfig
	Condition  host.Condition
	Sound      host.SoundPlayer
	Chat       host.ChatGui
	Static     host.StaticData
	Commands   host.CommandRouter
}

// Options carries the pieces that are not host collaborators.
type Options struct {
	ConfigStore config.Store
	// Views are the window toggles for the /ohhey command. Zero value
	// makes every subcommand a no-op.
	Views command.Views
}

// Addon owns the full component graph.
type Addon struct {
	log    logx.Logger
	logSvc *logx.Service
	cfg    *config.Manager

	data     *gamedata.Cache
	previews *template.PreviewCache
	journal  journal.Store

	chatListener   *listener.ChatListener
	emoteListener  *listener.EmoteListener
	targetListener *listener.TargetListener

	emotes  *emote.Service
	targets *target.Service
	command *command.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads configuration and wires the component graph. A failed
// native hook install degrades the dependent feature and is reported
// through the log, not as an error: the add-on still loads.
func New(h Host, opts Options) (*Addon, error) {
	mgr := config.NewManager(opts.ConfigStore)
	doc, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logConfig(doc), chatPrinter{chat: h.Chat})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	a := &Addon{log: log, logSvc: logSvc, cfg: mgr}

	a.data = gamedata.New(h.Static, log.With(logx.String("comp", "gamedata")))
	a.previews = template.NewPreviewCache(a.data.TargetedTemplates, log.With(logx.String("comp", "previews")))

	a.journal, err = journal.Open(journalConfig(doc), log.With(logx.String("comp", "journal")))
	if err != nil {
		log.Warn("journal disabled", logx.Err(err))
		a.journal = nil
	}

	a.chatListener = listener.NewChatListener(h.Chat, log.With(logx.String("comp", "chat-listener")))

	a.emoteListener, err = listener.NewEmoteListener(h.Interop, h.Objects, a.data,
		log.With(logx.String("comp", "emote-listener")))
	if err != nil {
		log.Error("emote hook install failed; emote features disabled for this session", logx.Err(err))
		a.emoteListener = nil
	}

	a.targetListener, err = listener.NewTargetListener(h.Interop, h.Objects,
		log.With(logx.String("comp", "target-listener")))
	if err != nil {
		log.Error("target hook install failed; target features disabled for this session", logx.Err(err))
		a.targetListener = nil
	}

	a.emotes = emote.NewService(emote.Deps{
		Log:        log.With(logx.String("comp", "emote")),
		Config:     mgr.Get,
		Data:       a.data,
		Previews:   a.previews,
		Chat:       h.Chat,
		Player:     h.Player,
		Condition:  h.Condition,
		Sound:      h.Sound,
		Targets:    h.Targets,
		Objects:    h.Objects,
		Agent:      h.EmoteAgent,
		GameConfig: h.GameConfig,
		Journal:    a.journal,
	})
	a.emotes.Attach(a.emoteListener, a.chatListener)

	a.targets = target.NewService(target.Deps{
		Log:       log.With(logx.String("comp", "target")),
		Config:    mgr.Get,
		Data:      a.data,
		Chat:      h.Chat,
		Player:    h.Player,
		Condition: h.Condition,
		Sound:     h.Sound,
		Objects:   h.Objects,
		Journal:   a.journal,
	})
	a.targets.Attach(a.targetListener)

	a.command, err = command.New(h.Commands, h.Chat, opts.Views,
		log.With(logx.String("comp", "command")))
	if err != nil {
		a.Stop(context.Background())
		return nil, fmt.Errorf("register command: %w", err)
	}

	log.Info("add-on wired",
		logx.Bool("emote_hook", a.emoteListener != nil),
		logx.Bool("target_hook", a.targetListener != nil),
		logx.Bool("journal", a.journal != nil))
	return a, nil
}

// Start begins watching the config file and applying changes. It
// returns immediately; the watch runs until Stop.
func (a *Addon) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	updates := a.cfg.Subscribe(4)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.cfg.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	go func() {
		defer a.wg.Done()
		defer a.cfg.Unsubscribe(updates)
		for {
			select {
			case <-ctx.Done():
				return
			case doc, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(doc)
			}
		}
	}()
	return nil
}

func (a *Addon) applyConfig(doc *config.Document) {
	a.logSvc.Apply(logConfig(doc))
	a.log.Info("configuration applied", logx.Int("version", doc.Version))
}

// Stop tears the graph down in reverse wiring order. Safe to call
// after a partial New failure.
func (a *Addon) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for watchers")
	}

	if a.command != nil {
		a.command.Close()
	}
	if a.targets != nil {
		a.targets.Close()
	}
	if a.emotes != nil {
		a.emotes.Close()
	}
	if a.targetListener != nil {
		a.targetListener.Close()
	}
	if a.emoteListener != nil {
		a.emoteListener.Close()
	}
	if a.chatListener != nil {
		a.chatListener.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("journal close failed", logx.Err(err))
		}
	}
	_ = a.logSvc.Close()
	return nil
}

// Emotes exposes the emote service for the host debug UI.
func (a *Addon) Emotes() *emote.Service { return a.emotes }

// Targets exposes the target service for the host debug UI.
func (a *Addon) Targets() *target.Service { return a.targets }

// Previews exposes the template preview cache for the host debug UI.
func (a *Addon) Previews() *template.PreviewCache { return a.previews }

// Config exposes the config manager for the host settings UI.
func (a *Addon) Config() *config.Manager { return a.cfg }

func logConfig(doc *config.Document) logx.Config {
	return logx.Config{
		Level:   doc.Logging.Level,
		Console: doc.Logging.Console,
		Chat: logx.ChatConfig{
			Enabled:    doc.Logging.Chat.Enabled,
			MinLevel:   doc.Logging.Chat.MinLevel,
			RatePerSec: int(doc.Logging.Chat.RatePerSec),
		},
	}
}

func journalConfig(doc *config.Document) journal.Config {
	if !doc.Journal.Enabled {
		return journal.Config{}
	}
	return journal.Config{
		Driver: doc.Journal.Driver,
		Path:   doc.Journal.Path,
	}
}

// chatPrinter adapts the host chat sink to the log service's mirror
// target.
type chatPrinter struct {
	chat host.ChatGui
}

func (p chatPrinter) PrintLogLine(level, text string) {
	msg := host.NewMessageBuilder().
		AddColored("[OhHey:"+level+"] ", 537).
		AddText(text).
		Build()
	p.chat.Print(host.ChatEntry{Channel: host.ChannelDebug, Message: msg})
}
