// Package diag collects compiler diagnostics. Messages are never printed at
// the point they are raised, because resolution does not visit the source
// strictly left to right; they accumulate here and come out sorted by file
// position when the unit is drained.
package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
)

// Pos is a position in the source file. Line and column are 1-based; a zero
// Pos means "no position".
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("[%d:%d]", p.Line, p.Column)
}

// Severity ranks a diagnostic. Only Error failing a compilation.
type Severity int

const (
	Warning Severity = iota
	Error
	Info
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Info:
		return "info"
	}
	return "unknown"
}

// Message is one collected diagnostic.
type Message struct {
	Pos      Pos
	Severity Severity
	Text     string
}

// Collector accumulates diagnostics for one compilation. It belongs to a
// single compiler instance and is not safe for concurrent use.
type Collector struct {
	msgs       []Message
	unitErrors int
	fileErrors int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Errorf records an error.
func (c *Collector) Errorf(pos Pos, format string, args ...any) {
	c.msgs = append(c.msgs, Message{Pos: pos, Severity: Error, Text: fmt.Sprintf(format, args...)})
	c.unitErrors++
	c.fileErrors++
}

// Warnf records a warning.
func (c *Collector) Warnf(pos Pos, format string, args ...any) {
	c.msgs = append(c.msgs, Message{Pos: pos, Severity: Warning, Text: fmt.Sprintf(format, args...)})
}

// Infof records an informational message.
func (c *Collector) Infof(pos Pos, format string, args ...any) {
	c.msgs = append(c.msgs, Message{Pos: pos, Severity: Info, Text: fmt.Sprintf(format, args...)})
}

// UnitErrors returns the error count since the last unit drain.
func (c *Collector) UnitErrors() int {
	return c.unitErrors
}

// FileErrors returns the error count for the whole file.
func (c *Collector) FileErrors() int {
	return c.fileErrors
}

// Messages returns the collected messages sorted by position then severity,
// without draining them.
func (c *Collector) Messages() []Message {
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	sortMessages(out)
	return out
}

// Drain returns the sorted messages and resets the collector for the next
// unit. The file error count survives.
func (c *Collector) Drain() []Message {
	out := c.msgs
	c.msgs = nil
	c.unitErrors = 0
	sortMessages(out)
	return out
}

func sortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		if a.Pos.Column != b.Pos.Column {
			return a.Pos.Column < b.Pos.Column
		}
		return a.Severity < b.Severity
	})
}

// Printer renders drained messages with the offending source line and a
// caret. Color is used only when the destination is a terminal.
type Printer struct {
	w     io.Writer
	lines []string
	color bool
}

// NewPrinter builds a printer over the given source text.
func NewPrinter(w io.Writer, source string) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, lines: strings.Split(source, "\n"), color: color}
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// Print writes one message.
func (p *Printer) Print(m Message) {
	tag := m.Severity.String()
	if p.color {
		switch m.Severity {
		case Error:
			tag = ansiRed + tag + ansiReset
		case Warning:
			tag = ansiYellow + tag + ansiReset
		}
	}
	fmt.Fprintf(p.w, "%s %s: %s\n", m.Pos, tag, m.Text)
	if m.Pos.Line > 0 && m.Pos.Line <= len(p.lines) {
		line := p.lines[m.Pos.Line-1]
		fmt.Fprintf(p.w, "  %s\n", line)
		if m.Pos.Column > 0 && m.Pos.Column <= len(line)+1 {
			fmt.Fprintf(p.w, "  %s^\n", strings.Repeat(" ", m.Pos.Column-1))
		}
	}
}

// PrintAll writes every message.
func (p *Printer) PrintAll(msgs []Message) {
	for _, m := range msgs {
		p.Print(m)
	}
}
