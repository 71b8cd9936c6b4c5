package ratelimit

import "context"

// queuedOp is one deferred operation waiting for capacity.
type queuedOp struct {
	ctx      context.Context
	op       func(context.Context) error
	priority int
	done     chan error
}

// opQueue keeps deferred operations sorted by descending priority.
// Equal priorities keep arrival order, so the queue is stable.
type opQueue struct {
	items []*queuedOp
}

func newOpQueue() *opQueue {
	return &opQueue{}
}

func (q *opQueue) len() int {
	return len(q.items)
}

// push inserts after the last item with priority >= the new item's.
func (q *opQueue) push(it *queuedOp) {
	idx := len(q.items)
	for i, existing := range q.items {
		if existing.priority < it.priority {
			idx = i
			break
		}
	}
	q.items = append(q.items, nil)
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = it
}

// pushFront reinserts an item at the head after a failed recheck. The
// head is always the highest-priority item, so this never breaks the
// ordering invariant.
func (q *opQueue) pushFront(it *queuedOp) {
	q.items = append([]*queuedOp{it}, q.items...)
}

func (q *opQueue) popFront() *queuedOp {
	it := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return it
}
