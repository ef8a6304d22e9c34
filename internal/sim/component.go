// Package sim implements the discrete-event simulation kernel: a
// cooperative, tick-driven scheduler over a tree of components that share
// one mutable status value, bounded single-producer/single-consumer
// channels with explicit back-pressure, and a waiting-heap used by any
// component that models a fixed-latency event.
package sim

// Component is a single tick-driven node in the simulation tree. Status is
// the shared, mutable simulation-global state threaded through every
// update call by pointer (there is exactly one value of it per run).
//
// Update returns (busy, updated): busy means the component still has
// outstanding work (used by the scheduler to decide whether to keep
// ticking); updated means the component observably changed state this
// tick (used to detect livelock — busy with no updated, tick after tick).
type Component[Status any] interface {
	Update(status *Status, cycle uint64) (busy, updated bool)
}

// Composite polls every child unconditionally on every tick and ORs their
// (busy, updated) results. No short-circuiting: skipping a child once
// another child reports busy would starve it within the tick, breaking
// the fairness every bounded-queue component in this simulator depends on.
type Composite[Status any] []Component[Status]

func (c Composite[Status]) Update(status *Status, cycle uint64) (busy, updated bool) {
	for _, child := range c {
		cb, cu := child.Update(status, cycle)
		busy = busy || cb
		updated = updated || cu
	}
	return busy, updated
}

// Pair composes exactly two children, the common case of a Trail wired to
// "everything else" at the simulator root.
type Pair[Status any] struct {
	First, Second Component[Status]
}

func (p Pair[Status]) Update(status *Status, cycle uint64) (busy, updated bool) {
	b1, u1 := p.First.Update(status, cycle)
	b2, u2 := p.Second.Update(status, cycle)
	return b1 || b2, u1 || u2
}

// Func adapts a plain function to Component, useful for tests and for the
// root-level run-mode switch described in the top-level assembly.
type Func[Status any] func(status *Status, cycle uint64) (bool, bool)

func (f Func[Status]) Update(status *Status, cycle uint64) (bool, bool) {
	return f(status, cycle)
}
