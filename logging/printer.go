package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/runloop-rt/runloop/queue"
)

const (
	colorNone     = "0"
	colorRed      = "31"
	colorGreen    = "38;5;48"
	colorYellow   = "33"
	colorGray     = "38;5;251"
	colorGrayBold = "1;38;5;251"
	colorCyan     = "1;36"
)

// DateFormat is the timestamp layout used by TextPrinter.
const DateFormat = "2006-01-02 15:04:05"

var printMu sync.Mutex

// Printer renders a Record to some underlying writer. Swappable so the
// Listener scope can be reconfigured (text vs JSON) without touching
// anything upstream of it.
type Printer interface {
	Print(r Record)
}

// TextPrinter renders human-readable, optionally ANSI-colored lines, with
// color support detected via golang.org/x/term.
type TextPrinter struct {
	Writer io.Writer
	Colors bool
}

// NewTextPrinter returns a TextPrinter with color support autodetected from
// w, if w is an *os.File.
func NewTextPrinter(w io.Writer) *TextPrinter {
	return &TextPrinter{Writer: w, Colors: colorsSupported(w)}
}

func colorsSupported(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (p *TextPrinter) Print(r Record) {
	now := r.Time.Format(DateFormat)

	var line string
	var fieldStrs []string

	if p.Colors {
		levelColor := colorGreen
		msgColor := colorNone
		switch r.Level {
		case DEBUG:
			levelColor, msgColor = colorGray, colorGray
		case WARN:
			levelColor = colorYellow
		case ERROR, FATAL:
			levelColor, msgColor = colorRed, colorRed
		}
		line = fmt.Sprintf("\x1b[%sm%s %-6s\x1b[0m \x1b[%sm%s\x1b[0m",
			levelColor, now, r.Level, msgColor, r.Message)
		for _, f := range r.Fields {
			fieldStrs = append(fieldStrs, fmt.Sprintf("\x1b[%sm%s=\x1b[0m\x1b[%sm%s\x1b[0m",
				colorGrayBold, f.Key(), msgColor, f.String()))
		}
	} else {
		line = fmt.Sprintf("%s %-6s %s", now, r.Level, r.Message)
		for _, f := range r.Fields {
			fieldStrs = append(fieldStrs, fmt.Sprintf("%s=%s", f.Key(), f.String()))
		}
	}

	printMu.Lock()
	defer printMu.Unlock()
	fmt.Fprint(p.Writer, line)
	if r.Logger != "" {
		fmt.Fprintf(p.Writer, " logger=%s", r.Logger)
	}
	if len(fieldStrs) > 0 {
		fmt.Fprintf(p.Writer, " %s", strings.Join(fieldStrs, " "))
	}
	fmt.Fprint(p.Writer, "\n")
}

// QueuePrinter is the one handler every child-scope logger is reconfigured
// to use: rather than rendering a Record, it enqueues it onto the central
// log queue for the listener scope to print. Logger.log already rejects
// sub-effective-level records before calling Print at all, so nothing below
// the configured level ever reaches Put; WithFilters adds further record
// filters (RequireFields, typically) to the same chain.
type QueuePrinter struct {
	Queue   *queue.LogQueue[Record]
	filters []func(Record) error
}

// NewQueuePrinter returns a Printer that forwards every Record it is asked
// to print onto q.
func NewQueuePrinter(q *queue.LogQueue[Record]) *QueuePrinter {
	return &QueuePrinter{Queue: q}
}

// WithFilters appends record filters applied before enqueueing. A record
// any filter rejects is dropped, with the rejection printed to stderr -
// never logged, since the logging path must not re-enter itself. Returns
// the printer for chaining.
func (p *QueuePrinter) WithFilters(fs ...func(Record) error) *QueuePrinter {
	p.filters = append(p.filters, fs...)
	return p
}

func (p *QueuePrinter) Print(r Record) {
	for _, f := range p.filters {
		if err := f(r); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
	}
	p.Queue.Put(r)
}

// JSONPrinter renders one JSON object per line.
type JSONPrinter struct {
	Writer io.Writer
}

// NewJSONPrinter returns a JSONPrinter writing to w.
func NewJSONPrinter(w io.Writer) *JSONPrinter { return &JSONPrinter{Writer: w} }

func (p *JSONPrinter) Print(r Record) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`"ts":%q,`, r.Time.Format("2006-01-02T15:04:05Z07:00")))
	b.WriteString(fmt.Sprintf(`"level":%q,`, r.Level.String()))
	if r.Logger != "" {
		b.WriteString(fmt.Sprintf(`"logger":%q,`, r.Logger))
	}
	b.WriteString(fmt.Sprintf(`"msg":%q`, r.Message))
	for _, f := range r.Fields {
		b.WriteString(fmt.Sprintf(`,%q:%q`, f.Key(), f.String()))
	}

	printMu.Lock()
	defer printMu.Unlock()
	fmt.Fprintf(p.Writer, "{%s}\n", b.String())
}
