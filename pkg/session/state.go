// Package session tracks the interactive scripting session: its observable
// state, the commands that drive it and the reconciliation of asynchronous
// execution results.
package session

import (
	"sync"

	"github.com/dukex/scriptpanel/pkg/models"
)

// ChangeKind names the part of the state that changed.
type ChangeKind string

const (
	StatusChanged     ChangeKind = "status"
	WorkspaceChanged  ChangeKind = "workspace"
	ExecutableChanged ChangeKind = "executable"
	ViewChanged       ChangeKind = "view"
	// ViewRefreshed is emitted when a run produced a valid view and the
	// preview must reload it.
	ViewRefreshed ChangeKind = "view-refreshed"
)

// Change is delivered to subscribers after a mutation, together with the
// state as it was right after that mutation.
type Change struct {
	Kinds    []ChangeKind
	Snapshot Snapshot
}

// Has reports whether the change includes kind.
func (c Change) Has(kind ChangeKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}

	return false
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Status              models.SessionStatus       `json:"status"`
	LastActionResult    models.LastActionResult    `json:"lastActionResult,omitempty"`
	Workspace           models.Workspace           `json:"workspace"`
	ExecutableSelection models.ExecutableSelection `json:"executableSelection"`
	ViewPreview         models.ViewPreviewStatus   `json:"viewPreview"`
	RunningSupported    bool                       `json:"isRunningSupported"`
	Generation          uint64                     `json:"generation"`
}

// CanRun reports whether a new run may start.
func (s Snapshot) CanRun() bool {
	return s.Status == models.SessionStatusIdle && s.RunningSupported && !s.ExecutableSelection.IsMissing
}

// State is the single owner of the session state. All access goes through
// its methods; subscribers are notified outside the lock.
//
// Workspace is nil until the first snapshot arrives and is only ever replaced
// as a whole.
type State struct {
	mu sync.Mutex

	status           models.SessionStatus
	lastActionResult models.LastActionResult
	workspace        models.Workspace
	executable       models.ExecutableSelection
	view             models.ViewPreviewStatus
	runningSupported bool
	// generation advances whenever a run starts or the session is torn down.
	// Execution results from an older generation are stale.
	generation uint64

	subscribers map[int]func(Change)
	nextID      int
}

func NewState() *State {
	return &State{
		status:           models.SessionStatusIdle,
		runningSupported: true,
		subscribers:      make(map[int]func(Change)),
	}
}

// Subscribe registers fn for state changes and returns a function that
// removes the subscription.
func (s *State) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	var workspace models.Workspace
	if s.workspace != nil {
		workspace = make(models.Workspace, len(s.workspace))
		copy(workspace, s.workspace)
	}

	return Snapshot{
		Status:              s.status,
		LastActionResult:    s.lastActionResult,
		Workspace:           workspace,
		ExecutableSelection: s.executable,
		ViewPreview:         s.view,
		RunningSupported:    s.runningSupported,
		Generation:          s.generation,
	}
}

// mutate applies fn under the lock and notifies subscribers when fn reports
// changes.
func (s *State) mutate(fn func() []ChangeKind) Snapshot {
	s.mu.Lock()
	kinds := fn()
	snapshot := s.snapshotLocked()

	subscribers := make([]func(Change), 0, len(s.subscribers))
	if len(kinds) > 0 {
		for _, sub := range s.subscribers {
			subscribers = append(subscribers, sub)
		}
	}
	s.mu.Unlock()

	change := Change{Kinds: kinds, Snapshot: snapshot}
	for _, sub := range subscribers {
		sub(change)
	}

	return snapshot
}

func (s *State) SetRunningSupported(supported bool) {
	s.mutate(func() []ChangeKind {
		if s.runningSupported == supported {
			return nil
		}

		s.runningSupported = supported

		return []ChangeKind{StatusChanged}
	})
}

func (s *State) setExecutable(selection models.ExecutableSelection) {
	s.mutate(func() []ChangeKind {
		if s.executable == selection {
			return nil
		}

		s.executable = selection

		return []ChangeKind{ExecutableChanged}
	})
}

// beginRun moves an idle session into status and returns the generation of
// the new run.
func (s *State) beginRun(status models.SessionStatus) (uint64, error) {
	var (
		generation uint64
		err        error
	)

	s.mutate(func() []ChangeKind {
		switch {
		case s.status != models.SessionStatusIdle:
			err = ErrAlreadyRunning
		case !s.runningSupported:
			err = ErrRunningUnsupported
		case s.executable.IsMissing:
			err = ErrExecutableMissing
		}

		if err != nil {
			return nil
		}

		s.status = status
		s.generation++
		generation = s.generation

		return []ChangeKind{StatusChanged}
	})

	return generation, err
}

// abortRun returns to idle if generation is still the current run.
func (s *State) abortRun(generation uint64) {
	s.mutate(func() []ChangeKind {
		if s.generation != generation || s.status == models.SessionStatusIdle {
			return nil
		}

		s.status = models.SessionStatusIdle

		return []ChangeKind{StatusChanged}
	})
}

// teardown returns to idle, invalidates outstanding runs and optionally
// empties the workspace.
func (s *State) teardown(clearWorkspace bool) {
	s.mutate(func() []ChangeKind {
		s.generation++
		kinds := make([]ChangeKind, 0, 2)

		if s.status != models.SessionStatusIdle {
			s.status = models.SessionStatusIdle
			kinds = append(kinds, StatusChanged)
		}

		if clearWorkspace {
			s.workspace = models.Workspace{}
			kinds = append(kinds, WorkspaceChanged)
		}

		return kinds
	})
}

func (s *State) setLastActionResult(result models.LastActionResult) {
	s.mutate(func() []ChangeKind {
		s.lastActionResult = result

		return []ChangeKind{StatusChanged}
	})
}

func (s *State) resetView() {
	s.mutate(func() []ChangeKind {
		s.view = models.ViewPreviewStatus{}

		return []ChangeKind{ViewChanged}
	})
}

// applyOutcome finalizes a run. It returns false without touching the state
// when the outcome belongs to an older generation.
func (s *State) applyOutcome(outcome models.ExecutionOutcome) bool {
	result := outcome.Result()
	applied := false

	s.mutate(func() []ChangeKind {
		if result.Generation != 0 && result.Generation != s.generation {
			return nil
		}

		applied = true

		s.workspace = result.Workspace
		s.status = models.SessionStatusIdle
		s.lastActionResult = models.LastActionResult(outcome.Status())
		s.view = models.ViewPreviewStatus{HasValidView: result.HasValidView, IsExecutedOnce: true}

		kinds := []ChangeKind{WorkspaceChanged, StatusChanged, ViewChanged}
		if result.HasValidView {
			kinds = append(kinds, ViewRefreshed)
		}

		return kinds
	})

	return applied
}

// forceIdle returns to idle without any other change.
func (s *State) forceIdle() {
	s.mutate(func() []ChangeKind {
		if s.status == models.SessionStatusIdle {
			return nil
		}

		s.status = models.SessionStatusIdle

		return []ChangeKind{StatusChanged}
	})
}
