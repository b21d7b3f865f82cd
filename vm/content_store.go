package vm

import (
	"sync"

	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// ContentStore: content-addressed index for compiled procedures
// ---------------------------------------------------------------------------

// ContentStore indexes compiled procedures by their content hash. Delta
// compilation consults it to recognize an unchanged body: same hash, same
// procedure, no invalidation.
type ContentStore struct {
	mu    sync.RWMutex
	procs map[[32]byte]*compiler.Procedure
}

// NewContentStore creates an empty content store.
func NewContentStore() *ContentStore {
	return &ContentStore{procs: make(map[[32]byte]*compiler.Procedure)}
}

// Index adds a procedure to the store, keyed by its content hash.
// Procedures with a zero hash are silently ignored.
func (cs *ContentStore) Index(p *compiler.Procedure) {
	if p.Hash == ([32]byte{}) {
		return
	}
	cs.mu.Lock()
	cs.procs[p.Hash] = p
	cs.mu.Unlock()
}

// Lookup returns the procedure for the given hash, or nil.
func (cs *ContentStore) Lookup(h [32]byte) *compiler.Procedure {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.procs[h]
}

// Has reports whether the store contains the given hash.
func (cs *ContentStore) Has(h [32]byte) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.procs[h]
	return ok
}

// Remove drops the procedure with the given hash.
func (cs *ContentStore) Remove(h [32]byte) {
	cs.mu.Lock()
	delete(cs.procs, h)
	cs.mu.Unlock()
}

// Hashes returns all procedure content hashes in the store.
func (cs *ContentStore) Hashes() [][32]byte {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	hashes := make([][32]byte, 0, len(cs.procs))
	for h := range cs.procs {
		hashes = append(hashes, h)
	}
	return hashes
}

// Len returns the number of indexed procedures.
func (cs *ContentStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.procs)
}
