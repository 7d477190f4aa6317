package graph

import "github.com/naudhr/tup/internal/ir"

// worklist is the pending/done bookkeeping the builder walks over during
// expansion: a FIFO of not-yet-expanded ids plus a set of ids already
// expanded, so a node already processed is never re-expanded even if it
// is reached again through a different edge.
type worklist struct {
	pending []ir.Tupid
	queued  map[ir.Tupid]bool
	done    map[ir.Tupid]bool
}

func newWorklist(seeds []ir.Tupid) *worklist {
	w := &worklist{
		queued: make(map[ir.Tupid]bool, len(seeds)),
		done:   make(map[ir.Tupid]bool, len(seeds)),
	}
	for _, id := range seeds {
		w.enqueue(id)
	}
	return w
}

// enqueue schedules id for expansion unless it has already been expanded
// or is already waiting.
func (w *worklist) enqueue(id ir.Tupid) {
	if w.done[id] || w.queued[id] {
		return
	}
	w.queued[id] = true
	w.pending = append(w.pending, id)
}

func (w *worklist) empty() bool { return len(w.pending) == 0 }

// pop removes and returns the head of the queue, marking it done.
func (w *worklist) pop() ir.Tupid {
	id := w.pending[0]
	w.pending = w.pending[1:]
	delete(w.queued, id)
	w.done[id] = true
	return id
}
