package engine

import (
	"context"
	"sync"

	"github.com/sicko7947/flowgraph"
)

// emitter serialises event construction so the previousHash chain
// matches channel order exactly. Sends block the emitting task until
// the consumer (or the buffer) accepts the event; a cancelled caller
// context releases pending sends.
type emitter struct {
	ctx      context.Context
	ch       chan flowgraph.StateEvent
	mu       sync.Mutex
	lastHash string
}

func newEmitter(ctx context.Context, bufferSize int) *emitter {
	return &emitter{
		ctx: ctx,
		ch:  make(chan flowgraph.StateEvent, bufferSize),
	}
}

// send builds the event with the current chain hash and publishes it
func (em *emitter) send(build func(prevHash string) flowgraph.StateEvent) {
	em.mu.Lock()
	defer em.mu.Unlock()

	ev := build(em.lastHash)
	if h, err := flowgraph.HashEvent(ev); err == nil {
		em.lastHash = h
	}
	// Prefer delivery: only give up on a full buffer with a gone caller
	select {
	case em.ch <- ev:
		return
	default:
	}
	select {
	case em.ch <- ev:
	case <-em.ctx.Done():
	}
}

func (em *emitter) close() {
	close(em.ch)
}
