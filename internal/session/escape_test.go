package session

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEscape_IsIdempotent(t *testing.T) {
	nav := &navRecorder{}
	e := NewEscape(nav, "/signin/", zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.RedirectToSignIn()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, nav.count())
	assert.EqualValues(t, 1, e.Count())
}

func TestEscape_RearmsWhenSessionReturns(t *testing.T) {
	nav := &navRecorder{}
	e := NewEscape(nav, "/signin/", zerolog.Nop())
	s := NewStore()
	unwatch := e.Watch(s)
	defer unwatch()

	s.Set(&User{ID: "1"})
	assert.True(t, invalidate(s, e))
	assert.False(t, invalidate(s, e), "already absent")

	s.Set(&User{ID: "1"})
	assert.True(t, invalidate(s, e))

	assert.Equal(t, 2, nav.count())
}

func TestEscape_NilNavigator(t *testing.T) {
	e := NewEscape(nil, "/signin/", zerolog.Nop())
	assert.NotPanics(t, func() { e.RedirectToSignIn() })
	assert.EqualValues(t, 1, e.Count())
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	NavigatorFunc(func(path string) { got = path }).Navigate("/signin/")
	assert.Equal(t, "/signin/", got)
}
