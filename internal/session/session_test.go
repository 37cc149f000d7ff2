package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/lemmy"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/sources/accounts"
)

type fakeClient struct {
	lemmy.API
	instance, jwt string
}

func fakeFactory(instance, jwt string) (lemmy.API, error) {
	if instance == "broken.example" {
		return nil, errors.New("no")
	}
	return &fakeClient{instance: instance, jwt: jwt}, nil
}

var (
	alice = accounts.Account{Handle: "alice@lemmy.world", Instance: "lemmy.world", JWT: "a"}
	bob   = accounts.Account{Handle: "bob@lemmy.ml", Instance: "lemmy.ml", JWT: "b"}
)

func newManager(t *testing.T, active domain.Handle) *Manager {
	t.Helper()
	m := NewManager(logger.Nop(), fakeFactory)
	_, _, err := m.Replace(accounts.Accounts{List: []accounts.Account{alice, bob}, Active: active})
	require.NoError(t, err)
	return m
}

func TestNoSession(t *testing.T) {
	m := newManager(t, "")

	assert.Nil(t, m.Client())
	assert.Empty(t, m.ActiveHandle())
	assert.Empty(t, m.Instance())
	_, ok := m.Active()
	assert.False(t, ok)
	_, ok = m.State()
	assert.False(t, ok)
	assert.Equal(t, []domain.Handle{alice.Handle, bob.Handle}, m.Accounts())
}

func TestReplaceActivates(t *testing.T) {
	m := newManager(t, alice.Handle)

	assert.Equal(t, alice.Handle, m.ActiveHandle())
	assert.Equal(t, "lemmy.world", m.Instance())
	c, ok := m.Client().(*fakeClient)
	require.True(t, ok)
	assert.Equal(t, "a", c.jwt)

	st, ok := m.State()
	require.True(t, ok)
	assert.NotEmpty(t, st.ID)
}

func TestReplaceSameAccountKeepsSession(t *testing.T) {
	m := newManager(t, alice.Handle)
	before, _ := m.State()

	prev, next, err := m.Replace(accounts.Accounts{List: []accounts.Account{alice, bob}, Active: alice.Handle})
	require.NoError(t, err)
	assert.Equal(t, prev, next)

	after, _ := m.State()
	assert.Equal(t, before.ID, after.ID)
}

func TestReplaceWithNewJWTRebuildsClient(t *testing.T) {
	m := newManager(t, alice.Handle)
	before, _ := m.State()

	rotated := alice
	rotated.JWT = "a2"
	prev, next, err := m.Replace(accounts.Accounts{List: []accounts.Account{rotated}, Active: alice.Handle})
	require.NoError(t, err)
	assert.Equal(t, alice.Handle, prev)
	assert.Equal(t, alice.Handle, next)

	after, _ := m.State()
	assert.NotEqual(t, before.ID, after.ID)
	assert.Equal(t, "a2", m.Client().(*fakeClient).jwt)
}

func TestReplaceFactoryFailureEndsSession(t *testing.T) {
	m := newManager(t, alice.Handle)

	broken := accounts.Account{Handle: "carol@broken.example", Instance: "broken.example", JWT: "c"}
	_, next, err := m.Replace(accounts.Accounts{List: []accounts.Account{broken}, Active: broken.Handle})
	assert.Error(t, err)
	assert.Empty(t, next)
	assert.Nil(t, m.Client())
}

func TestSwitchAndLogout(t *testing.T) {
	m := newManager(t, alice.Handle)

	require.NoError(t, m.Switch(bob.Handle))
	assert.Equal(t, bob.Handle, m.ActiveHandle())

	err := m.Switch("nobody@nowhere.example")
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.Equal(t, bob.Handle, m.ActiveHandle(), "failed switch keeps the session")

	m.Logout()
	assert.Nil(t, m.Client())
	assert.Equal(t, []domain.Handle{alice.Handle, bob.Handle}, m.Accounts())
}

func TestSetSiteIgnoresStaleSession(t *testing.T) {
	m := newManager(t, alice.Handle)
	st, _ := m.State()

	require.NoError(t, m.Switch(bob.Handle))
	assert.False(t, m.SetSite(st.ID, &domain.GetSiteResponse{Version: "old"}))
	assert.Nil(t, m.Site())

	current, _ := m.State()
	assert.True(t, m.SetSite(current.ID, &domain.GetSiteResponse{Version: "0.19"}))
	assert.Equal(t, "0.19", m.Site().Version)

	m.Logout()
	assert.Nil(t, m.Site())
}
