package listener

import (
	"ohhey/internal/host"
	"ohhey/pkg/logx"
)

// ChatMessage is one line the client is about to render. Setting
// *Handled suppresses it; the first subscriber to set the flag wins,
// but every subscriber still runs.
type ChatMessage struct {
	Channel   host.Channel
	Timestamp int32
	Sender    *host.Message
	Message   *host.Message
	Handled   *bool
}

// ChatListener fans rendered chat lines out to subscribers. A panicking
// subscriber is logged and skipped without affecting the rest.
type ChatListener struct {
	log        logx.Logger
	subs       *observers[ChatMessage]
	unregister func()
}

// NewChatListener registers with the client chat pipeline.
func NewChatListener(chat host.ChatGui, log logx.Logger) *ChatListener {
	l := &ChatListener{
		log:  log,
		subs: newObservers[ChatMessage](log),
	}
	l.unregister = chat.RegisterMessageHandler(l.onMessage)
	return l
}

// Subscribe registers fn for inbound lines. The returned function
// unsubscribes.
func (l *ChatListener) Subscribe(fn func(ChatMessage)) func() {
	return l.subs.subscribe(fn)
}

func (l *ChatListener) onMessage(channel host.Channel, timestamp int32, sender, message *host.Message, handled *bool) {
	l.subs.notify(ChatMessage{
		Channel:   channel,
		Timestamp: timestamp,
		Sender:    sender,
		Message:   message,
		Handled:   handled,
	})
}

// Close unregisters from the chat pipeline.
func (l *ChatListener) Close() {
	if l.unregister != nil {
		l.unregister()
	}
}
