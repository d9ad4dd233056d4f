package ingest

import (
	"sync"

	"github.com/poiesic/mediamind/core"
)

// inflightKey identifies one unit of deduplicated work.
type inflightKey struct {
	library string
	fp      core.Fingerprint
}

// inflightRun is the shared state between a leader executing the slow path
// for a fingerprint and followers waiting on the outcome.
type inflightRun struct {
	done chan struct{} // closed when the leader finishes
	err  error         // leader outcome, valid after done is closed
}

// inflightTable deduplicates concurrent pipeline work on identical content
// within this process. The first task to register for a (library,
// fingerprint) becomes the leader and runs the pipeline; later tasks become
// followers and wait for the leader's outcome instead of duplicating the
// expensive remote work. The durable active-task claim in storage guards
// the same invariant across process restarts.
type inflightTable struct {
	mu   sync.Mutex
	runs map[inflightKey]*inflightRun
}

func newInflightTable() *inflightTable {
	return &inflightTable{
		runs: make(map[inflightKey]*inflightRun),
	}
}

// acquire registers interest in a (library, fingerprint). The first caller
// becomes the leader; everyone else gets the leader's run to wait on.
func (t *inflightTable) acquire(library string, fp core.Fingerprint) (run *inflightRun, leader bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := inflightKey{library: library, fp: fp}
	if existing, ok := t.runs[key]; ok {
		return existing, false
	}
	run = &inflightRun{done: make(chan struct{})}
	t.runs[key] = run
	return run, true
}

// release publishes the leader's outcome and wakes all followers.
func (t *inflightTable) release(library string, fp core.Fingerprint, err error) {
	t.mu.Lock()
	key := inflightKey{library: library, fp: fp}
	run := t.runs[key]
	delete(t.runs, key)
	t.mu.Unlock()

	if run != nil {
		run.err = err
		close(run.done)
	}
}
