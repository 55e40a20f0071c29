package host

import "strings"

// Channel mirrors the client's chat channel enum. Only the values the
// add-on routes to or filters on are named; the rest are passed through
// opaquely.
type Channel uint16

const (
	ChannelNone          Channel = 0
	ChannelDebug         Channel = 1
	ChannelUrgent        Channel = 2
	ChannelNotice        Channel = 3
	ChannelSay           Channel = 10
	ChannelStandardEmote Channel = 29
	ChannelEcho          Channel = 56
	ChannelSystemMessage Channel = 57
)

// Icon identifies a glyph from the client's bitmap chat font.
type Icon uint16

const (
	IconNone       Icon = 0
	IconCrossWorld Icon = 88
)

type SegmentKind uint8

const (
	SegmentText SegmentKind = iota
	SegmentColored
	SegmentPlayer
	SegmentIcon
	SegmentLinkStart
	SegmentLinkEnd
)

// Segment is one styled piece of a chat message. Which fields are
// meaningful depends on Kind: Text for SegmentText/SegmentColored (plus
// Color), Text+WorldID for SegmentPlayer, Icon for SegmentIcon, and
// LinkID for SegmentLinkStart.
type Segment struct {
	Kind    SegmentKind
	Text    string
	Color   uint16
	WorldID uint32
	Icon    Icon
	LinkID  uint32
}

// Message is an ordered sequence of segments, the structured equivalent
// of a rendered chat line.
type Message struct {
	Segments []Segment
}

// TextValue flattens the message to plain text, dropping all styling and
// link markers. This is the canonical-text rendering used for matching
// and logging.
func (m Message) TextValue() string {
	var b strings.Builder
	for _, s := range m.Segments {
		switch s.Kind {
		case SegmentText, SegmentColored, SegmentPlayer:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// PlayerName returns the name carried by the first player segment, if
// any. Rendered chat lines embed the sender as a player link; the raw
// sender text may be decorated (party numbers, quotes) so the payload
// name is preferred when present.
func (m Message) PlayerName() (string, bool) {
	for _, s := range m.Segments {
		if s.Kind == SegmentPlayer && strings.TrimSpace(s.Text) != "" {
			return s.Text, true
		}
	}
	return "", false
}

// Text builds a single-segment plain message.
func Text(s string) Message {
	return Message{Segments: []Segment{{Kind: SegmentText, Text: s}}}
}

// MessageBuilder accumulates segments in order.
type MessageBuilder struct {
	segs []Segment
}

func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{} }

func (b *MessageBuilder) AddText(text string) *MessageBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentText, Text: text})
	return b
}

func (b *MessageBuilder) AddColored(text string, color uint16) *MessageBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentColored, Text: text, Color: color})
	return b
}

// AddPlayer appends a clickable player link segment.
func (b *MessageBuilder) AddPlayer(name string, worldID uint32) *MessageBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentPlayer, Text: name, WorldID: worldID})
	return b
}

func (b *MessageBuilder) AddIcon(icon Icon) *MessageBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentIcon, Icon: icon})
	return b
}

// StartLink opens a clickable span dispatched to the handler registered
// under commandID. It must be closed with EndLink.
func (b *MessageBuilder) StartLink(commandID uint32) *MessageBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentLinkStart, LinkID: commandID})
	return b
}

func (b *MessageBuilder) EndLink() *MessageBuilder {
	b.segs = append(b.segs, Segment{Kind: SegmentLinkEnd})
	return b
}

func (b *MessageBuilder) Build() Message {
	return Message{Segments: append([]Segment(nil), b.segs...)}
}
