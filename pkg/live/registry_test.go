package live

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/plant-station-service/pkg/common"
	_ "liyu1981.xyz/plant-station-service/pkg/testing"
)

func TestRegisterAndSessionsFor(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	s1, s2, s3 := newFakeSession(), newFakeSession(), newFakeSession()

	require.NoError(t, r.Register(s1, "u1"))
	require.NoError(t, r.Register(s2, "u1"))
	require.NoError(t, r.Register(s3, "u2"))

	assert.ElementsMatch(t, []Session{s1, s2}, collect(r, "u1"))
	assert.ElementsMatch(t, []Session{s3}, collect(r, "u2"))
	assert.Empty(t, collect(r, "nobody"))
	assert.Equal(t, 3, r.Len())

	owner, ok := r.OwnerOf(s3)
	assert.True(t, ok)
	assert.Equal(t, "u2", owner)
}

func TestRegister_RejectsRebind(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	s := newFakeSession()
	require.NoError(t, r.Register(s, "u1"))

	// same owner again
	err := r.Register(s, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyBound))
	var bound *AlreadyBoundError
	require.ErrorAs(t, err, &bound)
	assert.Equal(t, "u1", bound.Owner)
	assert.Equal(t, s.ID(), bound.SessionID)

	// different owner
	err = r.Register(s, "u2")
	assert.ErrorIs(t, err, ErrAlreadyBound)

	assert.Equal(t, 1, r.Count("u1"))
	assert.Equal(t, 0, r.Count("u2"))
}

func TestRegister_EmptyOwner(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	assert.ErrorIs(t, r.Register(newFakeSession(), ""), ErrEmptyOwner)
	assert.Equal(t, 0, r.Len())
}

func TestUnregister_Idempotent(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	s := newFakeSession()
	require.NoError(t, r.Register(s, "u1"))

	assert.True(t, r.Unregister(s))
	assert.False(t, r.Unregister(s))
	assert.False(t, r.Unregister(newFakeSession()))

	assert.Equal(t, 0, r.Count("u1"))
	_, ok := r.OwnerOf(s)
	assert.False(t, ok)
}

func TestSessionsFor_IsSnapshot(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	s1, s2 := newFakeSession(), newFakeSession()
	require.NoError(t, r.Register(s1, "u1"))

	seq := r.SessionsFor("u1")

	require.NoError(t, r.Register(s2, "u1"))
	r.Unregister(s1)

	var seen []Session
	for s := range seq {
		seen = append(seen, s)
	}
	assert.Equal(t, []Session{s1}, seen)

	// iterating again replays the same snapshot
	seen = seen[:0]
	for s := range seq {
		seen = append(seen, s)
	}
	assert.Equal(t, []Session{s1}, seen)
}

func TestAll_SpansOwners(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	s1, s2, s3 := newFakeSession(), newFakeSession(), newFakeSession()
	require.NoError(t, r.Register(s1, "u1"))
	require.NoError(t, r.Register(s2, "u2"))
	require.NoError(t, r.Register(s3, "u2"))

	var all []Session
	for s := range r.All() {
		all = append(all, s)
	}
	assert.ElementsMatch(t, []Session{s1, s2, s3}, all)
}

func TestRegistry_Concurrency(t *testing.T) {
	common.SetTestLoggerNop()

	r := NewRegistry()
	owners := []string{"u1", "u2", "u3", "u4"}

	var kept []*fakeSession
	var keptMu sync.Mutex
	var wg sync.WaitGroup

	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := newFakeSession()
			owner := owners[i%len(owners)]
			if err := r.Register(s, owner); err != nil {
				t.Error(err)
				return
			}
			_ = collect(r, owner)
			if i%2 == 0 {
				r.Unregister(s)
				r.Unregister(s)
				return
			}
			keptMu.Lock()
			kept = append(kept, s)
			keptMu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, len(kept), r.Len())
	for _, s := range kept {
		_, ok := r.OwnerOf(s)
		assert.True(t, ok)
	}
}
