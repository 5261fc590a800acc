// Package queue provides the in-memory hand-off queues between pipeline
// workers.
//
// A Queue is an unbounded FIFO: Push never blocks, Pop blocks until an item
// arrives, the context is cancelled, or the queue is closed and drained.
// Items are not persisted; anything still queued when the process exits is
// lost.
package queue
