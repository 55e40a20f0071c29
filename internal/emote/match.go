package emote

import (
	"strings"
	"unicode"

	"ohhey/internal/host"
	"ohhey/internal/template"
)

// namePlaceholder is the sentinel substituted for the preview
// placeholder before matching. It never appears in real chat text.
const namePlaceholder = "ohheynameplaceholder"

// normalizeForComparison lowercases, keeps letters and digits, and
// collapses every other run of characters bordered by whitespace into a
// single space. Rendered lines and templates go through the same
// transform so punctuation and styling differences cannot break the
// match.
func normalizeForComparison(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(value))
	previousWasSpace := false
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			previousWasSpace = false
			continue
		}
		if !unicode.IsSpace(r) || previousWasSpace {
			continue
		}
		b.WriteByte(' ')
		previousWasSpace = true
	}
	return strings.TrimSpace(b.String())
}

func trimWrappingQuotes(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		return trimmed[1 : len(trimmed)-1]
	}
	return trimmed
}

// isTargetedLineFromSender reports whether normalizedMessage is the
// textual rendering of a known "sender acts on you" emote template. For
// each cached template the placeholder's prefix and suffix must match
// the line exactly and the span between them must contain the sender's
// normalized name.
func isTargetedLineFromSender(previews map[uint16]template.Preview, normalizedMessage, senderName string) bool {
	if strings.TrimSpace(normalizedMessage) == "" {
		return false
	}
	normalizedSender := normalizeForComparison(trimWrappingQuotes(senderName))
	if normalizedSender == "" {
		return false
	}

	for _, preview := range previews {
		tmpl := strings.ReplaceAll(preview.NameToYou, template.PreviewPlaceholder, namePlaceholder)
		normalizedTemplate := normalizeForComparison(tmpl)
		if normalizedTemplate == "" {
			continue
		}

		placeholderIndex := strings.Index(normalizedTemplate, namePlaceholder)
		if placeholderIndex < 0 {
			continue
		}

		prefix := normalizedTemplate[:placeholderIndex]
		suffix := normalizedTemplate[placeholderIndex+len(namePlaceholder):]

		if prefix != "" && !strings.HasPrefix(normalizedMessage, prefix) {
			continue
		}
		if suffix != "" && !strings.HasSuffix(normalizedMessage, suffix) {
			continue
		}

		start := len(prefix)
		end := len(normalizedMessage) - len(suffix)
		if end <= start {
			continue
		}

		nameSegment := strings.TrimSpace(normalizedMessage[start:end])
		if nameSegment == "" {
			continue
		}
		if strings.Contains(nameSegment, normalizedSender) {
			return true
		}
	}
	return false
}

// senderNameFromMessage prefers the player payload name embedded in the
// line over the raw sender text, which may be decorated with party
// numbers or quotes.
func senderNameFromMessage(message *host.Message, senderText string) string {
	if message != nil {
		if name, ok := message.PlayerName(); ok {
			return name
		}
	}
	return senderText
}
