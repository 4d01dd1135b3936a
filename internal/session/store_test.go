package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StartsUnknown(t *testing.T) {
	s := NewStore()
	assert.Equal(t, StateUnknown, s.State())
	assert.Nil(t, s.Current())
	assert.True(t, s.Active())
}

func TestStore_SetNotifiesSubscribersBeforeReturning(t *testing.T) {
	s := NewStore()

	var seen []*User
	s.Subscribe(func(u *User) { seen = append(seen, u) })

	ada := &User{ID: "1", Username: "ada"}
	s.Set(ada)
	require.Len(t, seen, 1)
	assert.Same(t, ada, seen[0])
	assert.Equal(t, StatePresent, s.State())

	s.Set(nil)
	require.Len(t, seen, 2)
	assert.Nil(t, seen[1])
	assert.Equal(t, StateAbsent, s.State())
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore()

	var a, b int
	unsubA := s.Subscribe(func(*User) { a++ })
	s.Subscribe(func(*User) { b++ })

	s.Set(&User{ID: "1"})
	unsubA()
	s.Set(nil)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestStore_ClearIfPresent(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*Store)
		wantCleared bool
		wantNotify  int
	}{
		{
			name:        "present is cleared",
			setup:       func(s *Store) { s.Set(&User{ID: "1"}) },
			wantCleared: true,
			wantNotify:  1,
		},
		{
			name:        "unknown resolves to absent without escape",
			setup:       func(*Store) {},
			wantCleared: false,
			wantNotify:  1,
		},
		{
			name:        "absent stays absent",
			setup:       func(s *Store) { s.Set(nil) },
			wantCleared: false,
			wantNotify:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			tt.setup(s)

			notified := 0
			s.Subscribe(func(*User) { notified++ })

			assert.Equal(t, tt.wantCleared, s.ClearIfPresent())
			assert.Equal(t, StateAbsent, s.State())
			assert.Nil(t, s.Current())
			assert.Equal(t, tt.wantNotify, notified)
		})
	}
}

func TestStore_ConcurrentClearHasSingleWinner(t *testing.T) {
	s := NewStore()
	s.Set(&User{ID: "1"})

	const n = 32
	var wg sync.WaitGroup
	var winners atomic.Int32
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if s.ClearIfPresent() {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
	assert.Equal(t, StateAbsent, s.State())
}

func TestStore_ConcurrentSetConverges(t *testing.T) {
	s := NewStore()
	ada := &User{ID: "1"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(ada)
		}()
	}
	wg.Wait()

	assert.Same(t, ada, s.Current())
}

func TestStore_CloseDropsMutations(t *testing.T) {
	s := NewStore()
	s.Set(&User{ID: "1"})

	notified := 0
	s.Subscribe(func(*User) { notified++ })
	s.Close()

	s.Set(nil)
	assert.False(t, s.ClearIfPresent())
	assert.Equal(t, StatePresent, s.State())
	assert.Equal(t, 0, notified)
	assert.False(t, s.Active())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "present", StatePresent.String())
	assert.Equal(t, "absent", StateAbsent.String())
}
