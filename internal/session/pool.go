package session

import (
	"context"
	"log/slog"
)

// command is one decoded-pending opcode/payload pair queued for a
// worker, tagged with the session it arrived on.
type command struct {
	sess    *Session
	opcode  byte
	payload []byte
}

// Pool is a fixed-size set of worker goroutines draining a single
// shared command channel. Session affinity (two commands from the same
// connection never running concurrently) comes from Session's own
// mutex, acquired by the worker around each Dispatch call — not from
// pinning a session to one worker.
type Pool struct {
	dispatcher *Dispatcher
	queue      chan command
	log        *slog.Logger
}

// NewPool builds a Pool with the given number of workers and queue
// depth, bound to dispatcher.
func NewPool(dispatcher *Dispatcher, workers, queueDepth int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	p := &Pool{
		dispatcher: dispatcher,
		queue:      make(chan command, queueDepth),
		log:        log,
	}
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

// Submit enqueues one command for processing. Blocks if the shared
// queue is full — a full queue means every worker is saturated, which
// the caller (the per-connection read loop) should treat as transient
// backpressure, not a per-session fault.
func (p *Pool) Submit(ctx context.Context, sess *Session, opcode byte, payload []byte) {
	select {
	case p.queue <- command{sess: sess, opcode: opcode, payload: payload}:
	case <-ctx.Done():
	}
}

func (p *Pool) worker(id int) {
	for c := range p.queue {
		c.sess.Lock()
		err := p.dispatcher.Dispatch(context.Background(), c.sess, c.opcode, c.payload)
		c.sess.Unlock()
		if err != nil && p.log != nil {
			p.log.Warn("command dispatch failed", "worker", id, "char_index", c.sess.CharIndex(), "error", err)
		}
	}
}
