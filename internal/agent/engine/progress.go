package engine

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress is a single status line updated in place while an alert is sent.
type Progress interface {
	Update(msg string)
	Warn(msg string)
	Done(msg string)
	Fail(msg string)
}

type nopProgress struct{}

func (nopProgress) Update(string) {}
func (nopProgress) Warn(string)   {}
func (nopProgress) Done(string)   {}
func (nopProgress) Fail(string)   {}

// TerminalProgress rewrites one terminal line. Warnings get their own line.
type TerminalProgress struct {
	W io.Writer

	mu   sync.Mutex
	last int
}

func (p *TerminalProgress) line(prefix, msg string, final bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := prefix + msg
	pad := ""
	if n := p.last - len(text); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.W, "\r%s%s", text, pad)
	p.last = len(text)
	if final {
		fmt.Fprintln(p.W)
		p.last = 0
	}
}

func (p *TerminalProgress) Update(msg string) { p.line("… ", msg, false) }
func (p *TerminalProgress) Warn(msg string)   { p.line("! ", msg, true) }
func (p *TerminalProgress) Done(msg string)   { p.line("✓ ", msg, true) }
func (p *TerminalProgress) Fail(msg string)   { p.line("✗ ", msg, true) }
