// Package live keeps track of bound live sessions and pushes stored readings
// to the sessions of the reading's owner.
package live

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
)

// Session is one live duplex connection as seen by the registry.
// Send must not block on a slow peer; it either queues the payload or fails.
type Session interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

var (
	ErrAlreadyBound   = errors.New("session already bound")
	ErrEmptyOwner     = errors.New("owner identity is empty")
	ErrDeliveryFailed = errors.New("delivery failed")
)

// AlreadyBoundError is returned when a session tries to declare an identity
// a second time.
type AlreadyBoundError struct {
	SessionID string
	Owner     string
}

func (e *AlreadyBoundError) Error() string {
	return fmt.Sprintf("session %s already bound to owner %q", e.SessionID, e.Owner)
}

func (e *AlreadyBoundError) Is(target error) bool {
	return target == ErrAlreadyBound
}

// Registry is a multimap owner -> sessions with the reverse index
// session -> owner kept alongside for O(1) teardown.
type Registry struct {
	mu       sync.RWMutex
	owners   map[string]map[string]Session
	bindings map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		owners:   make(map[string]map[string]Session),
		bindings: make(map[string]string),
	}
}

func (r *Registry) logger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameLiveHub,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryRegistry),
	)
}

// Register binds session to owner. A session binds exactly once; any later
// call fails with *AlreadyBoundError, whatever owner it names.
func (r *Registry) Register(session Session, owner string) error {
	if owner == "" {
		return ErrEmptyOwner
	}

	r.mu.Lock()
	if bound, exists := r.bindings[session.ID()]; exists {
		r.mu.Unlock()
		return &AlreadyBoundError{SessionID: session.ID(), Owner: bound}
	}

	sessions := r.owners[owner]
	if sessions == nil {
		sessions = make(map[string]Session)
		r.owners[owner] = sessions
	}
	sessions[session.ID()] = session
	r.bindings[session.ID()] = owner
	r.mu.Unlock()

	r.logger().Debug("Session bound", zap.String("session_id", session.ID()), zap.String("owner", owner))
	return nil
}

// Unregister drops every entry for session. It reports whether anything was
// removed, so repeated calls are harmless.
func (r *Registry) Unregister(session Session) bool {
	r.mu.Lock()
	owner, exists := r.bindings[session.ID()]
	if !exists {
		r.mu.Unlock()
		return false
	}

	delete(r.bindings, session.ID())
	if sessions := r.owners[owner]; sessions != nil {
		delete(sessions, session.ID())
		if len(sessions) == 0 {
			delete(r.owners, owner)
		}
	}
	r.mu.Unlock()

	r.logger().Debug("Session unbound", zap.String("session_id", session.ID()), zap.String("owner", owner))
	return true
}

// SessionsFor snapshots the sessions bound to owner at call time. Later
// registry changes do not affect a sequence already handed out.
func (r *Registry) SessionsFor(owner string) iter.Seq[Session] {
	r.mu.RLock()
	snapshot := make([]Session, 0, len(r.owners[owner]))
	for _, s := range r.owners[owner] {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	return func(yield func(Session) bool) {
		for _, s := range snapshot {
			if !yield(s) {
				return
			}
		}
	}
}

// All snapshots every bound session across owners.
func (r *Registry) All() iter.Seq[Session] {
	r.mu.RLock()
	snapshot := make([]Session, 0, len(r.bindings))
	for _, sessions := range r.owners {
		for _, s := range sessions {
			snapshot = append(snapshot, s)
		}
	}
	r.mu.RUnlock()

	return func(yield func(Session) bool) {
		for _, s := range snapshot {
			if !yield(s) {
				return
			}
		}
	}
}

func (r *Registry) OwnerOf(session Session) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.bindings[session.ID()]
	return owner, ok
}

func (r *Registry) Count(owner string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners[owner])
}

// Len is the number of bound sessions across all owners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
