// Package console provides sinks for the output console of the scripting panel.
package console

import (
	"log/slog"
	"sync"

	"github.com/dukex/scriptpanel/pkg/models"
)

// Console receives lines for the output console.
type Console interface {
	Writeln(line models.ConsoleLine)
}

// Func adapts a function to the Console interface.
type Func func(line models.ConsoleLine)

func (f Func) Writeln(line models.ConsoleLine) { f(line) }

const DefaultCapacity = 1000

// Buffer keeps the most recent console lines in memory.
type Buffer struct {
	mu       sync.RWMutex
	lines    []models.ConsoleLine
	capacity int
}

// NewBuffer creates a buffer that keeps at most capacity lines. A capacity
// of zero or less uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Buffer{capacity: capacity}
}

func (b *Buffer) Writeln(line models.ConsoleLine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if overflow := len(b.lines) - b.capacity; overflow > 0 {
		b.lines = append([]models.ConsoleLine(nil), b.lines[overflow:]...)
	}
}

// Lines returns a snapshot of the buffered lines, oldest first.
func (b *Buffer) Lines() []models.ConsoleLine {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lines := make([]models.ConsoleLine, len(b.lines))
	copy(lines, b.lines)

	return lines
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.lines = nil
	b.mu.Unlock()
}

// Multi writes every line to all consoles in order.
type Multi []Console

func (m Multi) Writeln(line models.ConsoleLine) {
	for _, c := range m {
		c.Writeln(line)
	}
}

// Logging mirrors console lines into a structured logger at debug level,
// warnings and errors at their own level.
type Logging struct {
	Logger *slog.Logger
}

func (l Logging) Writeln(line models.ConsoleLine) {
	switch {
	case line.Error != "":
		l.Logger.Error("console", "error", line.Error)
	case line.Warning != "":
		l.Logger.Warn("console", "warning", line.Warning)
	default:
		l.Logger.Debug("console", "text", line.Text)
	}
}
