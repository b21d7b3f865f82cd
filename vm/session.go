package vm

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lattice/compiler"
	"github.com/chazu/lattice/manifest"
)

// ---------------------------------------------------------------------------
// Session: one long-lived compile/execute workspace.
//
// The session owns the scope arena, the executive, and every session-wide
// flag; there is no ambient global state. Lifecycle transitions publish to
// an explicit observer list; the interop and debugging layers subscribe
// rather than being wired implicitly.
// ---------------------------------------------------------------------------

// ExecState is the execution lifecycle state.
type ExecState int

const (
	StateIdle ExecState = iota
	StateBegin
	StateBreak
	StateResume
	StateEnd
)

// String returns a human-readable state name.
func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBegin:
		return "begin"
	case StateBreak:
		return "break"
	case StateResume:
		return "resume"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// LifecycleEvent describes one execution-state transition.
type LifecycleEvent struct {
	SessionID string
	State     ExecState
}

// LifecycleObserver receives lifecycle events.
type LifecycleObserver func(LifecycleEvent)

// Session is one workspace: scope tree, executive, content index,
// lifecycle, and cancellation. Not safe for concurrent use; execution is
// single-threaded with cooperative cancellation.
type Session struct {
	ID   string
	Name string

	Arena *compiler.Arena
	Exec  *Executive

	// Content indexes every compiled procedure by content hash; delta
	// compiles consult it to recognize unchanged bodies.
	Content *ContentStore

	state           ExecState
	observers       []LifecycleObserver
	cancelRequested bool

	// store persists procedure records across sessions when the manifest
	// enables it; nil otherwise. recognized counts compiled procedures the
	// store already held from an earlier session.
	store      *ProcedureStore
	recognized int

	log commonlog.Logger
}

// NewSession creates a session with a fresh arena and executive, configured
// from the manifest (nil means defaults).
func NewSession(name string, m *manifest.Manifest) *Session {
	arena := compiler.NewArena()
	exec := NewExecutive(arena)
	s := &Session{
		ID:      uuid.NewString(),
		Name:    name,
		Arena:   arena,
		Exec:    exec,
		Content: NewContentStore(),
		state:   StateIdle,
		log:     commonlog.GetLogger("lattice.session"),
	}
	if m != nil {
		exec.PropagationLimit = m.Execution.PropagationLimit
		exec.DefaultLongest = m.Execution.ReplicationPolicy == "longest"
		if m.Persistence.Enabled {
			path := m.Persistence.Path
			if !filepath.IsAbs(path) && m.Dir != "" {
				path = filepath.Join(m.Dir, path)
			}
			store, err := OpenProcedureStore(path)
			if err != nil {
				s.log.Warningf("procedure store unavailable: %v", err)
			} else {
				s.store = store
			}
		}
	}
	exec.Cancelled = s.Cancelled
	return s
}

// Close releases the session's persistent resources.
func (s *Session) Close() error {
	if s.store != nil {
		err := s.store.Close()
		s.store = nil
		return err
	}
	return nil
}

// Subscribe adds a lifecycle observer.
func (s *Session) Subscribe(o LifecycleObserver) {
	s.observers = append(s.observers, o)
}

// State returns the current lifecycle state.
func (s *Session) State() ExecState { return s.state }

var legalTransitions = map[ExecState][]ExecState{
	StateIdle:   {StateBegin},
	StateBegin:  {StateBreak, StateEnd},
	StateBreak:  {StateResume, StateEnd},
	StateResume: {StateBreak, StateEnd},
	StateEnd:    {StateBegin},
}

// transition moves to the next lifecycle state. An illegal transition
// (e.g. Resume without a prior Break) is a caller bug and panics.
func (s *Session) transition(to ExecState) {
	for _, legal := range legalTransitions[s.state] {
		if legal == to {
			s.state = to
			s.log.Infof("session %s: %v", s.ID, to)
			ev := LifecycleEvent{SessionID: s.ID, State: to}
			for _, o := range s.observers {
				o(ev)
			}
			return
		}
	}
	panic(fmt.Sprintf("vm: illegal execution transition %v -> %v", s.state, to))
}

// RequestCancel sets the session-wide cancellation flag, polled between
// statements and iteration steps. Requesting cancellation twice in one run
// is a usage error.
func (s *Session) RequestCancel() {
	if s.cancelRequested {
		panic("vm: cancellation already requested for this session")
	}
	s.cancelRequested = true
	s.log.Info("cancellation requested")
}

// Cancelled reports whether cancellation has been requested.
func (s *Session) Cancelled() bool { return s.cancelRequested }

// ClearCancellation rearms the flag for a fresh run; exposed to tooling.
func (s *Session) ClearCancellation() { s.cancelRequested = false }

// Compile lowers top-level statements into the global scope, assigns
// runtime indices, and indexes the compiled procedures.
func (s *Session) Compile(stmts []compiler.Stmt) error {
	c := NewCompiler(s.Exec)
	if err := c.Compile(0, stmts); err != nil {
		return err
	}
	s.Arena.AssignRuntimeIndices()
	s.indexProcedures()
	return nil
}

// DeltaCompile captures a snapshot, lowers the edited statements, and rolls
// the session back if the compile fails. On success the session is reset
// for delta execution.
func (s *Session) DeltaCompile(stmts []compiler.Stmt) error {
	snaps := s.Exec.CaptureSnapshot()
	c := NewCompiler(s.Exec)
	if err := c.Compile(0, stmts); err != nil {
		s.Exec.ResetFromSnapshot(snaps)
		return fmt.Errorf("delta compile: %w", err)
	}
	if err := s.Exec.ResetForDeltaExecution(); err != nil {
		return fmt.Errorf("delta reset: %w", err)
	}
	s.Arena.AssignRuntimeIndices()
	s.indexProcedures()
	return nil
}

// Invalidate removes a procedure from the session, its content index, and
// the persistent store's working set.
func (s *Session) Invalidate(p *compiler.Procedure) {
	s.Exec.Invalidate(p)
	s.Content.Remove(p.Hash)
}

// indexProcedures registers every attached procedure in the content index.
// With persistence on, a hash the store already holds was compiled by an
// earlier session and counts as recognized rather than being rewritten; new
// hashes are saved.
func (s *Session) indexProcedures() {
	s.Arena.Walk(func(b *compiler.CodeBlock) {
		for _, p := range b.Procedures.Procedures() {
			if s.Content.Has(p.Hash) {
				continue
			}
			s.Content.Index(p)
			if s.store == nil {
				continue
			}
			known, err := s.store.Has(p.Hash)
			if err != nil {
				s.log.Warningf("probing procedure store for %s: %v", p.Name, err)
			}
			if known {
				s.recognized++
				s.log.Infof("procedure %s (%x) recognized from an earlier session", p.Name, p.Hash[:4])
				continue
			}
			if err := s.store.Save(p); err != nil {
				s.log.Warningf("persisting procedure %s: %v", p.Name, err)
			}
		}
	})
}

// Recognized returns how many compiled procedures were already present in
// the persistent store when this session indexed them.
func (s *Session) Recognized() int { return s.recognized }

// Execute runs the global scope through the full Begin→End lifecycle. When
// a break request suspends execution mid-replication the session lands in
// Break and the caller resumes with Resume.
func (s *Session) Execute() error {
	s.transition(StateBegin)
	err := s.Exec.RunScope(0)
	if errors.Is(err, ErrSuspended) {
		s.transition(StateBreak)
		return nil
	}
	s.finish()
	return err
}

// Resume continues a suspended execution exactly where it left off.
func (s *Session) Resume() error {
	s.transition(StateResume)
	err := s.Exec.Resume()
	if errors.Is(err, ErrSuspended) {
		s.transition(StateBreak)
		return nil
	}
	s.finish()
	return err
}

// Break asks the executive to suspend at the next step boundary.
func (s *Session) Break() {
	s.Exec.RequestBreak()
}

func (s *Session) finish() {
	s.transition(StateEnd)
}

// Tables builds the flat runtime tables for the production VM.
func (s *Session) Tables() *RuntimeTables {
	return BuildTables(s.Arena, s.Exec.Streams)
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

// SessionStore manages workspace sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create creates a session with an optional name and registers it.
func (st *SessionStore) Create(name string, m *manifest.Manifest) *Session {
	s := NewSession(name, m)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get retrieves a session by ID.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Destroy removes a session and releases its resources.
func (st *SessionStore) Destroy(id string) {
	st.mu.Lock()
	s := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if s != nil {
		s.Close()
	}
}
