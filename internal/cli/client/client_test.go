package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/branchd-dev/authsession/internal/cli/auth"
	"github.com/branchd-dev/authsession/internal/server/servertest"
	"github.com/branchd-dev/authsession/internal/session"
)

func newClient(t *testing.T, baseURL string, opts ...session.Option) *Client {
	t.Helper()
	c, err := New(session.DefaultConfig(baseURL), auth.Default, zerolog.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_LoginPersistsAcrossClients(t *testing.T) {
	keyring.MockInit()
	srv := servertest.New(t)
	ctx := context.Background()

	first := newClient(t, srv.URL)
	user, err := first.Login(ctx, servertest.Username, servertest.Password)
	require.NoError(t, err)
	assert.Equal(t, servertest.Username, user.Username)
	require.NoError(t, first.Close())

	second := newClient(t, srv.URL)
	current := second.Start(ctx)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)
}

func TestClient_StartWithoutStoredCookies(t *testing.T) {
	keyring.MockInit()
	srv := servertest.New(t)

	c := newClient(t, srv.URL)
	assert.Nil(t, c.Start(context.Background()))
	assert.Equal(t, session.StateAbsent, c.Manager().Store().State())
}

func TestClient_Posts(t *testing.T) {
	keyring.MockInit()
	srv := servertest.New(t)
	ctx := context.Background()

	c := newClient(t, srv.URL)
	_, err := c.Login(ctx, servertest.Username, servertest.Password)
	require.NoError(t, err)

	post, err := c.CreatePost(ctx, "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Title)
	assert.True(t, post.IsOwner)

	posts, err := c.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)
}

func TestClient_RequestRefreshesExpiredAccessToken(t *testing.T) {
	keyring.MockInit()
	srv := servertest.New(t)
	ctx := context.Background()

	c := newClient(t, srv.URL)
	_, err := c.Login(ctx, servertest.Username, servertest.Password)
	require.NoError(t, err)

	srv.Clock.Advance(6 * time.Minute)

	resp, err := c.Request(ctx, http.MethodGet, "dj-rest-auth/user/", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Contains(t, string(resp.Body), servertest.Username)

	// the rotated cookies were written back
	stored, err := auth.Default.LoadCookies(c.Manager().BaseURL().String())
	require.NoError(t, err)
	assert.NotEmpty(t, stored)
}

func TestClient_LogoutForgetsCookies(t *testing.T) {
	keyring.MockInit()
	srv := servertest.New(t)
	ctx := context.Background()

	c := newClient(t, srv.URL)
	_, err := c.Login(ctx, servertest.Username, servertest.Password)
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, session.StateAbsent, c.Manager().Store().State())

	_, err = auth.Default.LoadCookies(c.Manager().BaseURL().String())
	assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))
}

func TestClient_ListPostsUnauthenticated(t *testing.T) {
	keyring.MockInit()
	srv := servertest.New(t)

	c := newClient(t, srv.URL)
	_, err := c.ListPosts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
