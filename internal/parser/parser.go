// Package parser converts free-form generated text into structured copy
// records. The generator produces loosely formatted Korean marketing copy,
// so this is a line-oriented state machine with a fallback tier, not a
// structured-format parser.
package parser

import (
	"log/slog"
	"strings"

	"github.com/adcraft-io/copygen/internal/storage"
)

const (
	titleMarker   = "타이틀:"
	bodyMarker    = "본문:"
	buttonMarker  = "버튼:"
	messageMarker = "메시지:"

	adMarker = "(광고) "
)

// Parser extracts copy records from raw generation output.
type Parser struct {
	brandTag string
	logger   *slog.Logger
}

// New creates a Parser. brandTag is prepended to RCS messages that don't
// already carry it.
func New(brandTag string, logger *slog.Logger) *Parser {
	return &Parser{brandTag: brandTag, logger: logger}
}

// Parse converts raw generated text into copy records for the channel,
// truncated to count. Unparseable input yields an empty slice, never an
// error; the caller treats that as "no usable output".
func (p *Parser) Parse(raw, channel string, count int) []storage.ContentData {
	var copies []storage.ContentData
	if channel == storage.ChannelAppPush {
		copies = parseAppPush(raw)
	} else {
		copies = p.parseRCS(raw)
	}

	if len(copies) == 0 {
		copies = parseNumberedFallback(raw)
	}

	if channel == storage.ChannelRCS {
		copies = p.prefixBrandTag(copies)
	}

	if count > 0 && len(copies) > count {
		copies = copies[:count]
	}
	return copies
}

// stripMarkdown removes the bold emphasis the model tends to wrap labels in.
func stripMarkdown(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// afterMarker returns the trimmed, markdown-stripped text following the
// first occurrence of marker in line.
func afterMarker(line, marker string) string {
	_, rest, _ := strings.Cut(line, marker)
	return stripMarkdown(strings.TrimSpace(rest))
}

// numberedRest reports whether the trimmed line starts a numbered item
// ("N. text") and returns the text after the number token.
func numberedRest(line string) (string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	return strings.TrimSpace(line[i+1:]), true
}

// parseAppPush handles the "타이틀: ... / 본문: ..." format. A record opens
// on a title marker and closes on the next title marker or end of input;
// a record that never saw a body marker gets a synthesized ad message so
// title-only output is not dropped silently.
func parseAppPush(raw string) []storage.ContentData {
	var copies []storage.ContentData
	var current *storage.ContentData

	flush := func() {
		if current == nil || current.Title == "" {
			return
		}
		if current.Message == "" {
			current.Message = adMarker + current.Title
		}
		copies = append(copies, *current)
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.Contains(line, titleMarker):
			flush()
			current = &storage.ContentData{Title: afterMarker(line, titleMarker)}
		case strings.Contains(line, bodyMarker):
			if current != nil {
				// The body marker line is authoritative, not appended to.
				current.Message = afterMarker(line, bodyMarker)
			}
		}
	}
	flush()

	return copies
}

// parseRCS handles the "N. 버튼: ... / 메시지: ..." format where the message
// body spans multiple lines and blank lines are paragraph breaks that must
// survive parsing.
func (p *Parser) parseRCS(raw string) []storage.ContentData {
	var copies []storage.ContentData
	var current *storage.ContentData

	flush := func() {
		if current == nil || (current.Button == "" && current.Message == "") {
			return
		}
		copies = append(copies, *current)
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		if rest, ok := numberedRest(line); ok {
			flush()
			current = &storage.ContentData{}
			switch {
			case strings.Contains(rest, buttonMarker):
				current.Button = afterMarker(rest, buttonMarker)
			case strings.Contains(rest, messageMarker):
				current.Message = afterMarker(rest, messageMarker)
			default:
				// Legacy single-field format: the whole remainder is the message.
				current.Message = stripMarkdown(rest)
			}
			continue
		}

		if current == nil {
			continue
		}

		if line != "" && strings.Contains(line, messageMarker) {
			// An explicit message marker overwrites, never appends.
			current.Message = afterMarker(line, messageMarker)
			continue
		}

		// Continuation of the open record's message.
		switch {
		case line == "" && current.Message != "":
			current.Message += "\n"
		case line != "" && current.Message != "":
			current.Message += "\n" + stripMarkdown(line)
		case line != "":
			current.Message = stripMarkdown(line)
		}
	}
	flush()

	return copies
}

// parseNumberedFallback reinterprets numbered lines as message-only records
// when neither state machine produced anything. Formatting drift should
// degrade output quality, not empty it.
func parseNumberedFallback(raw string) []storage.ContentData {
	var copies []storage.ContentData
	for _, line := range strings.Split(raw, "\n") {
		if rest, ok := numberedRest(strings.TrimSpace(line)); ok && rest != "" {
			copies = append(copies, storage.ContentData{Message: stripMarkdown(rest)})
		}
	}
	return copies
}

// prefixBrandTag prepends the brand tag to RCS messages that don't already
// start with it, exactly once. Records without a message are passed through
// unprefixed.
func (p *Parser) prefixBrandTag(copies []storage.ContentData) []storage.ContentData {
	if p.brandTag == "" {
		return copies
	}
	for i := range copies {
		msg := copies[i].Message
		if msg == "" {
			p.logger.Warn("skipping brand prefix for record without message", "index", i)
			continue
		}
		if !strings.HasPrefix(strings.TrimSpace(msg), p.brandTag) {
			copies[i].Message = p.brandTag + "\n" + msg
		}
	}
	return copies
}
