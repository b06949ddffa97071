package completion

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dukex/scriptpanel/pkg/models"
)

// Suggestion is a single completion item returned to the editor.
type Suggestion struct {
	Label      string `json:"label"`
	Detail     string `json:"detail"`
	InsertText string `json:"insertText"`
	SortText   string `json:"sortText"`
	Range      Range  `json:"range"`
}

// Engine serves suggestions from a precomputed candidate list.
type Engine struct {
	mu         sync.RWMutex
	candidates []Candidate
}

// NewEngine creates an engine for the given candidates.
func NewEngine(candidates []Candidate) *Engine {
	e := &Engine{}
	e.Load(candidates)

	return e
}

// NewEngineFromInitialData creates an engine for the schema of data.
func NewEngineFromInitialData(data models.InitialData) *Engine {
	return NewEngine(CandidatesFromInitialData(data))
}

// Load replaces the candidate list, e.g. after the schema changed.
func (e *Engine) Load(candidates []Candidate) {
	copied := make([]Candidate, len(candidates))
	copy(copied, candidates)

	e.mu.Lock()
	e.candidates = copied
	e.mu.Unlock()
}

// Candidates returns a copy of the current candidate list.
func (e *Engine) Candidates() []Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	copied := make([]Candidate, len(e.candidates))
	copy(copied, e.candidates)

	return copied
}

// Suggest returns the candidates whose label starts with the typed word,
// case-insensitively, in schema order.
func (e *Engine) Suggest(cursor Cursor) []Suggestion {
	e.mu.RLock()
	defer e.mu.RUnlock()

	prefix := strings.ToLower(cursor.Word)
	leading, trailing := Quotes(cursor.CharBefore, cursor.CharAfter)

	suggestions := make([]Suggestion, 0)

	for _, candidate := range e.candidates {
		if !strings.HasPrefix(strings.ToLower(candidate.Label), prefix) {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			Label:      candidate.Label,
			Detail:     candidate.Detail,
			InsertText: leading + candidate.Label + trailing,
			SortText:   SortText(len(suggestions)),
			Range:      cursor.Range,
		})
	}

	return suggestions
}

// SortText renders a position as a fixed width sort key so that the editor
// keeps schema order instead of sorting alphabetically.
func SortText(position int) string {
	return fmt.Sprintf("%010d", position)
}
