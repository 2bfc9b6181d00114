package notifier

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Telegram rejects messages above 4096 characters; leave room for markup.
const maxMessageLen = 3800

type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage is the layout shared by every event push: a header line,
// a fenced block of bulleted sections, an optional footer and a timestamp.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

func (m StructuredMessage) RenderMarkdown() string {
	parts := make([]string, 0, 4)
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		parts = append(parts, header)
	}
	if block := m.renderBlock(); block != "" {
		parts = append(parts, block)
	}
	var tail []string
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		tail = append(tail, unfence(footer))
	}
	if !m.Timestamp.IsZero() {
		tail = append(tail, "Time: "+m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	return truncate(strings.Join(parts, "\n\n"), maxMessageLen)
}

func (m StructuredMessage) renderBlock() string {
	var blocks []string
	for _, sec := range m.Sections {
		var lines []string
		if title := strings.TrimSpace(sec.Title); title != "" {
			lines = append(lines, unfence(title))
		}
		bullets := 0
		for _, line := range sec.Lines {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, "- "+unfence(line))
				bullets++
			}
		}
		if bullets > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return "```\n" + strings.Join(blocks, "\n\n") + "\n```"
}

// unfence keeps user text from closing the code block early.
func unfence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
