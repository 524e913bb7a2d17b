// Package event reports per-item outcomes of a run: a progress marker on
// the console, a log entry and a running count.
package event

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Kind is the outcome of processing one item.
type Kind int

const (
	Imported Kind = iota
	Duplicate
	Filtered
	Failed
	Linked
	LinkExists
)

var kinds = map[Kind]struct {
	name   string
	marker string
	level  zapcore.Level
}{
	Imported:   {"imported", ".", zapcore.InfoLevel},
	Duplicate:  {"duplicate", "-", zapcore.InfoLevel},
	Filtered:   {"filtered", "", zapcore.DebugLevel},
	Failed:     {"failed", "x", zapcore.WarnLevel},
	Linked:     {"linked", ".", zapcore.InfoLevel},
	LinkExists: {"exists", "-", zapcore.DebugLevel},
}

func (k Kind) String() string {
	if d, ok := kinds[k]; ok {
		return d.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Recorder receives one event per processed item.
type Recorder interface {
	RecordEvent(kind Kind, detail string)
}

// Console is a Recorder that prints progress markers to out and logs every
// event.
type Console struct {
	out    io.Writer
	log    *zap.Logger
	counts map[Kind]int
}

// NewConsole returns a Console. A nil out disables progress markers; a nil
// log disables logging.
func NewConsole(out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}

	return &Console{out: out, log: log, counts: map[Kind]int{}}
}

func (c *Console) RecordEvent(kind Kind, detail string) {
	c.counts[kind]++

	d := kinds[kind]
	if ce := c.log.Check(d.level, detail); ce != nil {
		ce.Write(zap.Stringer("event", kind))
	}

	if c.out != nil && d.marker != "" {
		fmt.Fprint(c.out, d.marker)
	}
}

// Count returns how many events of kind were recorded.
func (c *Console) Count(kind Kind) int {
	return c.counts[kind]
}

// Summary renders the counts of the given kinds, e.g. "2 imported, 1 duplicate".
func (c *Console) Summary(of ...Kind) string {
	parts := make([]string, 0, len(of))
	for _, k := range of {
		parts = append(parts, fmt.Sprintf("%d %s", c.counts[k], k))
	}

	return strings.Join(parts, ", ")
}
