// Package command wires the /ohhey chat command to the host command
// dispatcher. View toggling stays with the host; the service only
// routes subcommands to the callbacks it is given.
package command

import (
	"strings"

	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

// Name is the slash command registered with the host.
const Name = "/ohhey"

const (
	prefixColor  = 537
	commandColor = 37
)

// Views are the host-provided window toggles. A nil callback makes the
// matching subcommand a no-op.
type Views struct {
	ToggleMain   func()
	ToggleConfig func()
	ToggleDebug  func()
}

// Service owns the command registration.
type Service struct {
	log    logx.Logger
	router host.CommandRouter
	chat   host.ChatGui
	views  Views
}

// New registers the command. Callers must Close to unregister.
func New(router host.CommandRouter, chat host.ChatGui, views Views, log logx.Logger) (*Service, error) {
	s := &Service{log: log, router: router, chat: chat, views: views}
	help := "Opens the OhHey main window if used by itself or when using '/ohhey main'.\n" +
		"Use '/ohhey config' to open the configuration window.\n" +
		"Use '/ohhey debug' to open the emote debug window."
	if err := router.AddHandler(Name, help, s.onCommand); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Close() {
	s.router.RemoveHandler(Name)
}

func (s *Service) onCommand(name, rawArgs string) {
	args := strings.Fields(rawArgs)
	s.log.Debug("chat command",
		logx.String("command", name),
		logx.String("args", rawArgs))

	if len(args) == 0 {
		s.toggle(s.views.ToggleMain)
		return
	}
	switch strings.ToLower(args[0]) {
	case "main":
		s.toggle(s.views.ToggleMain)
	case "config", "settings":
		s.toggle(s.views.ToggleConfig)
	case "debug":
		s.toggle(s.views.ToggleDebug)
	default:
		s.showHelp()
	}
}

func (s *Service) toggle(fn func()) {
	if fn != nil {
		fn()
	}
}

func (s *Service) showHelp() {
	b := host.NewMessageBuilder().
		AddColored("[Oh Hey!] Chat Commands: \n\n", prefixColor)
	for _, row := range [][2]string{
		{Name, " Opens the main window.\n"},
		{Name + " main", " Opens the main window.\n"},
		{Name + " [config|settings]", " Opens the configuration window.\n"},
		{Name + " debug", " Opens the emote debug window.\n"},
		{Name + " help", " Shows this help message."},
	} {
		b.AddText("- ").AddColored(row[0], commandColor).AddText(row[1])
	}
	s.chat.Print(host.ChatEntry{Message: b.Build()})
}
