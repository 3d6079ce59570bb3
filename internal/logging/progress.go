package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

const barWidth = 40

// ProgressBar renders (done, total) events as a single rewritten terminal
// line. A negative total means the size is unknown; only the byte count is
// shown then.
type ProgressBar struct {
	mu    sync.Mutex
	out   io.Writer
	label string
	last  string
}

// NewProgressBar creates a bar prefixed with label.
func NewProgressBar(out io.Writer, label string) *ProgressBar {
	return &ProgressBar{out: out, label: label}
}

// Update renders the current state. Safe for concurrent use.
func (p *ProgressBar) Update(done, total int64) {
	line := p.render(done, total)

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintf(p.out, "\r%s", line)
}

// Done terminates the line.
func (p *ProgressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != "" {
		fmt.Fprintln(p.out)
		p.last = ""
	}
}

func (p *ProgressBar) render(done, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("  %s %s", p.label, humanize.IBytes(uint64(max(done, 0))))
	}

	frac := float64(done) / float64(total)
	frac = min(max(frac, 0), 1)
	filled := int(frac * barWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	return fmt.Sprintf("  %s [%s] %3.0f%% %s/%s", p.label, bar, frac*100,
		humanize.IBytes(uint64(max(done, 0))), humanize.IBytes(uint64(total)))
}
