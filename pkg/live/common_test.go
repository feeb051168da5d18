package live

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var errClosed = errors.New("session closed")

type fakeSession struct {
	id string

	mu       sync.Mutex
	received [][]byte
	closed   bool
	closes   int

	block   chan struct{}
	explode bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: uuid.NewString()}
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Send(payload []byte) error {
	if f.explode {
		panic("transport exploded")
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errClosed
	}
	f.received = append(f.received, payload)
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closes++
	return nil
}

func (f *fakeSession) Received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.received))
	copy(out, f.received)
	return out
}

func collect(r *Registry, owner string) []Session {
	var out []Session
	for s := range r.SessionsFor(owner) {
		out = append(out, s)
	}
	return out
}
