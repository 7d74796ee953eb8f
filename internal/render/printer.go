package render

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/svcdeck/internal/output"
	"github.com/Iron-Ham/svcdeck/internal/util"
)

// SystemPrefix labels lines printed by svcdeck itself.
const SystemPrefix = "svcdeck"

// LinePrinter is an output.Sink that writes service output line by line,
// each line prefixed with its service name. Partial lines are held until
// their newline arrives, per service and stream, so interleaved chunks
// from different services never split a line.
type LinePrinter struct {
	mu       sync.Mutex
	w        io.Writer
	styles   *Styles
	maxWidth int
	pad      int
	partial  map[lineKey][]byte
}

type lineKey struct {
	service string
	stream  output.Stream
}

// NewLinePrinter creates a LinePrinter writing to w. maxWidth truncates
// each printed line to that many columns; 0 disables truncation.
func NewLinePrinter(w io.Writer, styles *Styles, maxWidth int) *LinePrinter {
	if styles == nil {
		styles = Plain()
	}
	return &LinePrinter{
		w:        w,
		styles:   styles,
		maxWidth: maxWidth,
		pad:      len(SystemPrefix),
		partial:  make(map[lineKey][]byte),
	}
}

// AlignTo widens the prefix column so that names line up.
func (p *LinePrinter) AlignTo(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range names {
		p.pad = max(p.pad, lipgloss.Width(n))
	}
}

// Deliver implements output.Sink.
func (p *LinePrinter) Deliver(c output.Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := lineKey{service: c.ServiceID, stream: c.Stream}
	buf := append(p.partial[key], c.Data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		p.writeLocked(c.ServiceID, c.Stream, buf[:i])
		buf = buf[i+1:]
	}
	if len(buf) == 0 {
		delete(p.partial, key)
		return
	}
	p.partial[key] = append([]byte(nil), buf...)
}

// Flush prints every held partial line.
func (p *LinePrinter) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, buf := range p.partial {
		p.writeLocked(key.service, key.stream, buf)
		delete(p.partial, key)
	}
}

// Printf prints a line under the svcdeck prefix.
func (p *LinePrinter) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitLocked(util.PadRight(p.styles.Title(SystemPrefix), p.pad), "│", fmt.Sprintf(format, args...))
}

func (p *LinePrinter) writeLocked(service string, stream output.Stream, line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	sep := "│"
	if stream == output.Stderr {
		sep = p.styles.Error("┃")
	}
	p.emitLocked(util.PadRight(p.styles.Service(service), p.pad), sep, string(line))
}

func (p *LinePrinter) emitLocked(prefix, sep, text string) {
	line := prefix + " " + sep + " " + text
	if p.maxWidth > 0 {
		line = util.TruncateANSI(line, p.maxWidth)
	}
	_, _ = fmt.Fprintln(p.w, line)
}
