package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// statusKind grades a status line the way the board lights do: idle is
// dark, good is green, fault is red. Attention has no light of its own.
type statusKind int

const (
	kindIdle statusKind = iota
	kindGood
	kindAttention
	kindFault
)

type statusBadge struct {
	text  string
	color string
}

var statusBadges = map[statusKind]statusBadge{
	kindIdle:      {text: "idle", color: "\x1b[34m"},
	kindGood:      {text: "ok", color: "\x1b[32m"},
	kindAttention: {text: "check", color: "\x1b[33m"},
	kindFault:     {text: "fault", color: "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

type statusLine struct {
	label   string
	kind    statusKind
	message string
}

type statusSection struct {
	title string
	lines []statusLine
}

// renderStatus lays out sections one after another. Labels are padded to
// the widest label of their own section.
func renderStatus(sections []statusSection, colorize bool) []string {
	var out []string
	for i, section := range sections {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, paint(colorize, statusBadges[kindIdle].color, "== "+strings.TrimSpace(section.title)+" =="))
		width := 0
		for _, line := range section.lines {
			width = max(width, len(line.label))
		}
		for _, line := range section.lines {
			out = append(out, line.render(width, colorize))
		}
	}
	return out
}

func (l statusLine) render(width int, colorize bool) string {
	badge := statusBadges[l.kind]
	text := fmt.Sprintf("  %-*s [%s]", width+1, l.label+":", badge.text)
	if l.message != "" {
		text += " " + l.message
	}
	return paint(colorize, badge.color, text)
}

func paint(colorize bool, color, text string) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

// lightKind grades an indicator reading. A lit error light is a fault, a
// lit activity light means work is in progress.
func lightKind(on, errorLight bool) statusKind {
	switch {
	case on && errorLight:
		return kindFault
	case on:
		return kindGood
	default:
		return kindIdle
	}
}

// humanLabel turns a snake_case identifier such as "waiting_for_disc" into
// "Waiting For Disc".
func humanLabel(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(value)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
