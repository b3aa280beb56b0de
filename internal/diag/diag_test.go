package diag

import (
	"strings"
	"testing"
)

func TestMessagesSortedByPosition(t *testing.T) {
	c := NewCollector()
	c.Errorf(Pos{Line: 3, Column: 1}, "third")
	c.Warnf(Pos{Line: 1, Column: 5}, "second")
	c.Errorf(Pos{Line: 1, Column: 2}, "first")
	c.Infof(Pos{Line: 3, Column: 1}, "fourth")

	msgs := c.Drain()
	if len(msgs) != 4 {
		t.Fatalf("got %d messages", len(msgs))
	}
	want := []string{"first", "second", "third", "fourth"}
	for i, w := range want {
		if msgs[i].Text != w {
			t.Errorf("message %d = %q, want %q", i, msgs[i].Text, w)
		}
	}
}

func TestSeverityOrderWithinPosition(t *testing.T) {
	c := NewCollector()
	c.Infof(Pos{Line: 1, Column: 1}, "info")
	c.Errorf(Pos{Line: 1, Column: 1}, "error")
	c.Warnf(Pos{Line: 1, Column: 1}, "warning")
	msgs := c.Drain()
	if msgs[0].Severity != Warning || msgs[1].Severity != Error || msgs[2].Severity != Info {
		t.Errorf("severity order wrong: %v %v %v", msgs[0].Severity, msgs[1].Severity, msgs[2].Severity)
	}
}

func TestErrorCounts(t *testing.T) {
	c := NewCollector()
	c.Warnf(Pos{}, "w")
	c.Errorf(Pos{}, "e1")
	c.Errorf(Pos{}, "e2")
	if c.UnitErrors() != 2 || c.FileErrors() != 2 {
		t.Errorf("unit=%d file=%d", c.UnitErrors(), c.FileErrors())
	}
	c.Drain()
	if c.UnitErrors() != 0 {
		t.Error("drain must reset the unit count")
	}
	if c.FileErrors() != 2 {
		t.Error("drain must keep the file count")
	}
	c.Errorf(Pos{}, "e3")
	if c.FileErrors() != 3 {
		t.Error("file count must accumulate")
	}
}

func TestPrinterRendersPositionAndCaret(t *testing.T) {
	var sb strings.Builder
	p := NewPrinter(&sb, "x := yy;\nsecond line")
	p.Print(Message{Pos: Pos{Line: 1, Column: 6}, Severity: Error, Text: "boom"})
	out := sb.String()
	if !strings.Contains(out, "[1:6] error: boom") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "x := yy;") {
		t.Errorf("missing source line: %q", out)
	}
	if !strings.Contains(out, "     ^") {
		t.Errorf("missing caret: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("color codes on a non-terminal: %q", out)
	}
}
