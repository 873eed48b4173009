// Package diag carries non-fatal diagnostics (skipped entries, unknown
// names, ...) from library code back to its caller. Nothing in strpack
// writes warnings to a shared stream; each job owns its sink.
package diag

import (
	"fmt"
	"sync"
)

// Sink receives diagnostics.
type Sink interface {
	Warnf(format string, args ...any)
}

// Func adapts a printf-style callback to a Sink.
type Func func(format string, args ...any)

// Warnf implements Sink.
func (f Func) Warnf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

type discard struct{}

func (discard) Warnf(string, ...any) {}

// Discard drops every diagnostic.
var Discard Sink = discard{}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Collector accumulates diagnostics in order. Safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	messages []string
}

// Warnf implements Sink.
func (c *Collector) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// Messages returns a copy of the collected diagnostics.
func (c *Collector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
