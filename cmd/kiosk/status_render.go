package main

import (
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusLevel grades one status entry. Only the badge is coloured so the
// detail text stays copyable.
type statusLevel int

const (
	levelInfo statusLevel = iota
	levelOK
	levelWarn
	levelError
)

var statusBadges = [...]struct{ text, color string }{
	levelInfo:  {"INFO", ansiBlue},
	levelOK:    {"OK", ansiGreen},
	levelWarn:  {"WARN", ansiYellow},
	levelError: {"ERROR", ansiRed},
}

func (l statusLevel) badge(colorize bool) string {
	b := statusBadges[l]
	if colorize {
		return "[" + b.color + b.text + ansiReset + "]"
	}
	return "[" + b.text + "]"
}

type statusEntry struct {
	label  string
	level  statusLevel
	detail string
}

// format renders "label  [BADGE] detail" with the label padded to width.
func (e statusEntry) format(width int, colorize bool) string {
	var b strings.Builder
	b.WriteString(e.label)
	if pad := width - len(e.label); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString("  ")
	b.WriteString(e.level.badge(colorize))
	if e.detail != "" {
		b.WriteByte(' ')
		b.WriteString(e.detail)
	}
	return b.String()
}

type statusSection struct {
	title   string
	entries []statusEntry
}

func (s *statusSection) add(label string, level statusLevel, detail string) {
	s.entries = append(s.entries, statusEntry{label: label, level: level, detail: detail})
}

// renderSections prints each section title followed by its indented
// entries. Labels line up across every section.
func renderSections(sections []*statusSection, colorize bool) string {
	width := 0
	for _, section := range sections {
		for _, entry := range section.entries {
			width = max(width, len(entry.label))
		}
	}
	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		if colorize {
			b.WriteString(ansiBold + section.title + ansiReset)
		} else {
			b.WriteString(section.title)
		}
		b.WriteByte('\n')
		for _, entry := range section.entries {
			b.WriteString("  ")
			b.WriteString(entry.format(width, colorize))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
