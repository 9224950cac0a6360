package sched

import "sync"

// overflowQueue is the shared FIFO behind all worker deques. It receives
// tasks woken from non-worker contexts (timer driver, readiness poller,
// external promise completions) and spill-over when a local deque is full.
// A plain mutex is enough here: the hot path is the local deque, and every
// overflow pop already pays for a park/unpark round trip.
type overflowQueue struct {
	mu   sync.Mutex
	buf  []*Task
	head int
}

func (q *overflowQueue) push(t *Task) {
	q.mu.Lock()
	q.buf = append(q.buf, t)
	q.mu.Unlock()
}

func (q *overflowQueue) pop() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.buf) {
		return nil
	}
	t := q.buf[q.head]
	q.buf[q.head] = nil
	q.head++
	if q.head == len(q.buf) {
		q.buf = q.buf[:0]
		q.head = 0
	} else if q.head > 128 && q.head*2 >= len(q.buf) {
		q.buf = append(q.buf[:0], q.buf[q.head:]...)
		q.head = 0
	}
	return t
}

func (q *overflowQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}
