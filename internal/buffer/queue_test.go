package buffer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestChunkQueue_PushPop(t *testing.T) {
	q := NewChunkQueue()
	q.Push([]byte("one"))
	q.Push([]byte("two"))

	ctx := context.Background()

	chunk, err := q.Pop(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(chunk, []byte("one")) {
		t.Errorf("expected 'one', got %q", chunk)
	}

	chunk, err = q.Pop(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(chunk, []byte("two")) {
		t.Errorf("expected 'two', got %q", chunk)
	}

	if q.Len() != 0 {
		t.Errorf("expected empty queue, got len %d", q.Len())
	}
}

func TestChunkQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewChunkQueue()

	done := make(chan []byte, 1)
	go func() {
		chunk, err := q.Pop(context.Background())
		if err != nil {
			done <- nil
			return
		}
		done <- chunk
	}()

	// Give the popper a moment to block, then push
	time.Sleep(10 * time.Millisecond)
	q.Push([]byte("late"))

	select {
	case chunk := <-done:
		if !bytes.Equal(chunk, []byte("late")) {
			t.Errorf("expected 'late', got %q", chunk)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestChunkQueue_PopCancelled(t *testing.T) {
	q := NewChunkQueue()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Pop(ctx); err == nil {
		t.Error("expected error from cancelled Pop")
	}
}

// For any sequence of pushed chunks, Pop yields the same chunks in the same
// order, each exactly once.
func TestChunkQueueOrderProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("chunks pop in push order", prop.ForAll(
		func(chunks [][]byte) bool {
			q := NewChunkQueue()
			for _, c := range chunks {
				q.Push(c)
			}

			ctx := context.Background()
			for _, want := range chunks {
				got, err := q.Pop(ctx)
				if err != nil {
					return false
				}
				if !bytes.Equal(got, want) {
					return false
				}
			}
			return q.Len() == 0
		},
		gen.SliceOf(gen.SliceOf(gen.UInt8())),
	))

	properties.TestingRun(t)
}
