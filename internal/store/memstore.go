package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/jobengine/internal/jobrun"
)

// Memory is an in-process Store, backed by a mutex-guarded map of graph
// nodes. It is the reference implementation the engine's own test suite runs
// against, and is a reasonable production choice for a single-process
// deployment that doesn't need to survive a restart mid-graph.
//
// A leaf is never leased to two workers at once: node.leased enforces this
// directly. A leaf only becomes a candidate in AcquireJob when it is Ready
// and not already leased; AcquireJob sets leased=true before releasing the
// lock, and ReleaseJob clears it.
type Memory struct {
	mu    sync.Mutex
	nodes map[string]*node

	// order gives AcquireJob a stable, FIFO-ish scan order (insertion
	// order), matching the reference SQL store's "ORDER BY created_at ASC"
	// tie-break.
	order []string

	liveness map[string]Liveness
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes:    make(map[string]*node),
		liveness: make(map[string]Liveness),
	}
}

func (m *Memory) newID() string { return uuid.New().String() }

// QueueAsync materializes spec into graph nodes, seeds the initially-ready
// leaves, and registers every leaf in insertion order.
func (m *Memory) QueueAsync(_ context.Context, spec Spec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root := buildGraph(spec, nil, 0, m.newID)
	seedReady(root)
	m.registerSubtree(root)
	return root.id, nil
}

func (m *Memory) registerSubtree(n *node) {
	m.nodes[n.id] = n
	if n.isLeaf() {
		m.order = append(m.order, n.id)
		return
	}
	for _, c := range n.children {
		m.registerSubtree(c)
	}
}

// AcquireJob scans leasable leaves in insertion order and leases the first
// one whose DueTime has passed.
func (m *Memory) AcquireJob(_ context.Context) (*jobrun.Description, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, id := range m.order {
		n, ok := m.nodes[id]
		if !ok || n.state != stateReady || n.leased {
			continue
		}
		if n.dueTime.After(now) {
			continue
		}
		n.leased = true
		return &jobrun.Description{
			ID:      n.id,
			Type:    n.jobType,
			Input:   n.input,
			DueTime: n.dueTime,
		}, nil
	}
	return nil, nil
}

// ReleaseJob applies result to the leaf identified by id.
func (m *Memory) ReleaseJob(_ context.Context, id string, result jobrun.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("jobengine/memstore: release unknown job id=%s", id)
	}
	n.leased = false

	switch result.State {
	case jobrun.Finished:
		n.state = stateTerminal
		onChildFinished(n)
	case jobrun.Reschedule:
		n.dueTime = result.DueTime
		n.state = stateReady
	case jobrun.Error:
		n.state = stateTerminal
		onChildErrored(n)
	default:
		return fmt.Errorf("jobengine/memstore: unknown result state %v for job id=%s", result.State, id)
	}
	return nil
}

// Heartbeat records machineName's liveness.
func (m *Memory) Heartbeat(_ context.Context, machineName string, parallelism int, pollingFrequency, heartBeatFrequency time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveness[machineName] = Liveness{
		MachineName:        machineName,
		Parallelism:        parallelism,
		PollingFrequency:   pollingFrequency,
		HeartBeatFrequency: heartBeatFrequency,
		LastSeen:           time.Now(),
	}
	return nil
}

// Liveness returns the last recorded heartbeat for machineName, and whether
// one has ever been recorded. Test-visible so scenarios can assert on
// heartbeat cadence.
func (m *Memory) Liveness(machineName string) (Liveness, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.liveness[machineName]
	return l, ok
}

// LeasedCount returns how many leaves are currently leased, for tests
// asserting the parallelism cap.
func (m *Memory) LeasedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.order {
		if m.nodes[id].leased {
			n++
		}
	}
	return n
}

// ReadyLeafTypes returns the job_type of every currently-ready, unleased
// leaf, sorted, for assertions in sequence/set scenario tests.
func (m *Memory) ReadyLeafTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, id := range m.order {
		n := m.nodes[id]
		if n.state == stateReady && !n.leased {
			out = append(out, n.jobType)
		}
	}
	sort.Strings(out)
	return out
}
