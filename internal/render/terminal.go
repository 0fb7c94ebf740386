package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/comigor/lifeline/internal/chat"
	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/normalize"
)

var badgeColors = map[history.AgentType]color.Attribute{
	history.AgentSupport:   color.FgCyan,
	history.AgentPolicy:    color.FgBlue,
	history.AgentTechnical: color.FgGreen,
	history.AgentBilling:   color.FgMagenta,
	history.AgentDadJoke:   color.FgRed,
}

// Terminal prints a chat View incrementally: committed messages once each and
// the live reply as it grows. It is meant to be registered with
// chat.WithObserver and is not safe for concurrent use.
type Terminal struct {
	w       io.Writer
	noColor bool

	printed   int    // history messages already shown
	firstID   string // id of history[0] when printed was last updated
	streamed  string // live content already shown
	streaming bool
}

// NewTerminal writes to w. noColor disables ANSI escapes.
func NewTerminal(w io.Writer, noColor bool) *Terminal {
	return &Terminal{w: w, noColor: noColor}
}

func (t *Terminal) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// Observe renders whatever changed since the previous call.
func (t *Terminal) Observe(v chat.View) {
	if len(v.History) > 0 && (len(v.History) < t.printed || v.History[0].ID != t.firstID) {
		// history was replaced by a reset
		t.endLive()
		if t.printed > 0 {
			t.paint(color.Faint).Fprintln(t.w, "--- new conversation ---")
		}
		t.printed = 0
	}

	for _, m := range v.History[t.printed:] {
		t.committed(m)
	}
	t.printed = len(v.History)
	if len(v.History) > 0 {
		t.firstID = v.History[0].ID
	}

	if v.Live != nil {
		t.live(v.Live.Content, v.Live.AgentType)
	}
}

func (t *Terminal) committed(m history.Message) {
	if m.Sender == history.SenderUser {
		t.paint(color.FgHiBlack, color.Bold).Fprint(t.w, "you: ")
		fmt.Fprintln(t.w, m.Content)
		return
	}

	content := normalize.Normalize(m.Content)
	wasStreaming, shown := t.streaming, t.streamed
	t.endLive()
	if wasStreaming && normalize.Normalize(shown) == content {
		return
	}
	// nothing streamed, or the committed text differs from what did (a failure)
	t.header(m.AgentType)
	fmt.Fprintln(t.w, content)
}

func (t *Terminal) header(agent history.AgentType) {
	info := agent.Info()
	attr, ok := badgeColors[agent.OrDefault()]
	if !ok {
		attr = color.FgCyan
	}
	t.paint(attr, color.Bold).Fprintf(t.w, "[%s]", info.Badge)
	fmt.Fprintf(t.w, " %s: ", info.DisplayName)
}

func (t *Terminal) live(content string, agent history.AgentType) {
	if !t.streaming {
		t.streaming = true
		t.streamed = ""
		t.header(agent)
	}
	if !strings.HasPrefix(content, t.streamed) {
		fmt.Fprintln(t.w)
		t.streamed = ""
	}
	fmt.Fprint(t.w, content[len(t.streamed):])
	t.streamed = content
}

func (t *Terminal) endLive() {
	if t.streaming {
		fmt.Fprintln(t.w)
	}
	t.streaming = false
	t.streamed = ""
}
