package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress draws a download bar for release assets. Its Update method
// matches registry.ProgressFunc and may be called from several goroutines.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	bar      progress.Model
	interval time.Duration
	last     map[string]time.Time
	finished map[string]bool

	// OnStart runs once before the first line is drawn, e.g. to stop a
	// spinner writing to the same terminal.
	OnStart func()
	started bool
}

// NewProgress returns a progress bar writing to out.
func NewProgress(out io.Writer) *Progress {
	opts := []progress.Option{progress.WithWidth(30), progress.WithoutPercentage()}
	switch {
	case !UseUnicode:
		opts = append(opts, progress.WithFillCharacters('#', '-'))
	case UseColors:
		opts = append(opts, progress.WithDefaultGradient())
	default:
		opts = append(opts, progress.WithSolidFill("7"))
	}

	return &Progress{
		out:      out,
		bar:      progress.New(opts...),
		interval: 100 * time.Millisecond,
		last:     make(map[string]time.Time),
		finished: make(map[string]bool),
	}
}

// Reset prepares the bar for the next package. onStart replaces OnStart.
func (p *Progress) Reset(onStart func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.OnStart = onStart
	p.started = false
	clear(p.last)
	clear(p.finished)
}

// Update records that done of total bytes of name have been read. total
// is zero when the size is unknown.
func (p *Progress) Update(name string, done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished[name] {
		return
	}
	complete := total > 0 && done >= total
	now := time.Now()
	if !complete && now.Sub(p.last[name]) < p.interval {
		return
	}
	p.last[name] = now

	if !p.started {
		p.started = true
		if p.OnStart != nil {
			p.OnStart()
		}
	}

	line := p.render(name, done, total)
	if complete {
		p.finished[name] = true
		fmt.Fprintf(p.out, "\r\033[K%s\n", line)
		return
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
}

// Done terminates a line left open by an asset whose size was unknown.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name := range p.last {
		if !p.finished[name] {
			fmt.Fprintln(p.out)
			return
		}
	}
}

func (p *Progress) render(name string, done, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s %s", name, FormatBytes(done))
	}
	percent := float64(done) / float64(total)
	return fmt.Sprintf("%s %s %3.0f%% %s/%s", name, p.bar.ViewAs(percent), percent*100, FormatBytes(done), FormatBytes(total))
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
