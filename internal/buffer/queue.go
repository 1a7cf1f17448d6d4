// Package buffer provides the output queue and history ring used to decouple
// process output from transport delivery.
package buffer

import (
	"context"
	"sync"
)

// ChunkQueue is an unbounded FIFO of byte chunks. Pushing never blocks, so a
// slow or disconnected consumer never stalls the producing reader loop; memory
// is bounded only by the producing process's lifetime. Chunks are popped in
// the exact order they were pushed.
//
// The queue is written by one producer and drained by one consumer.
type ChunkQueue struct {
	mu     sync.Mutex
	chunks [][]byte
	wake   chan struct{}
}

// NewChunkQueue creates an empty ChunkQueue.
func NewChunkQueue() *ChunkQueue {
	return &ChunkQueue{
		wake: make(chan struct{}, 1),
	}
}

// Push appends a chunk to the queue. The chunk is not copied; the caller must
// not reuse the slice after pushing.
func (q *ChunkQueue) Push(chunk []byte) {
	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest chunk, blocking until one is available
// or the context is cancelled.
func (q *ChunkQueue) Pop(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		if len(q.chunks) > 0 {
			chunk := q.chunks[0]
			q.chunks = q.chunks[1:]
			q.mu.Unlock()
			return chunk, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len returns the number of queued chunks.
func (q *ChunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}
