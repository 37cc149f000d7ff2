package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/settings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeKV is an in-memory settings.Store that counts calls and can be told to
// fail or slow down writes.
type fakeKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	gets     int
	sets     int
	setErr   error
	setDelay func(value any) time.Duration
	getErr   error
}

var _ settings.Store = (*fakeKV)(nil)

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, name settings.Name, scope settings.Scope, dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return false, f.getErr
	}
	raw, ok := f.data[settings.SettingKey(name, scope)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (f *fakeKV) Set(_ context.Context, name settings.Name, value any, scope settings.Scope) error {
	f.mu.Lock()
	delayFn, setErr := f.setDelay, f.setErr
	f.mu.Unlock()

	if delayFn != nil {
		time.Sleep(delayFn(value))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if setErr != nil {
		return setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[settings.SettingKey(name, scope)] = raw
	return nil
}

func (f *fakeKV) Ping(context.Context) error { return nil }
func (f *fakeKV) Backend() string            { return "fake" }
func (f *fakeKV) Close() error               { return nil }

func (f *fakeKV) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeKV) stored(t *testing.T, name settings.Name, scope settings.Scope, dst any) bool {
	t.Helper()
	found, err := f.Get(context.Background(), name, scope, dst)
	require.NoError(t, err)
	return found
}

const (
	alice = domain.Handle("alice@lemmy.world")
	bob   = domain.Handle("bob@lemmy.world")
	rust  = domain.Handle("rust@programming.dev")
	memes = domain.Handle("memes@lemmy.ml")
)

func newStore(t *testing.T, kv settings.Store) *Store {
	t.Helper()
	s := New(kv, logger.Nop(), Options{QueueSize: 16, WriteTimeout: time.Second})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func flush(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestLoadFavoritesWithoutUser(t *testing.T) {
	kv := newFakeKV()
	s := newStore(t, kv)

	favs, err := s.LoadFavorites(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Empty(t, favs)
	assert.Equal(t, 0, kv.getCount(), "no durable read without a user")
}

func TestAddFavoriteThenLoad(t *testing.T) {
	kv := newFakeKV()
	s := newStore(t, kv)
	ctx := context.Background()

	_, err := s.LoadFavorites(ctx, alice)
	require.NoError(t, err)

	favs := s.AddFavorite(alice, rust)
	assert.Equal(t, []domain.Handle{rust}, favs)
	assert.Contains(t, s.Favorites(), rust)

	flush(t, s)

	var stored []domain.Handle
	require.True(t, kv.stored(t, settings.FavoriteCommunities, settings.Scope{UserHandle: alice.String()}, &stored))
	assert.Equal(t, []domain.Handle{rust}, stored)

	// a fresh store reads it back
	again := newStore(t, kv)
	loaded, err := again.LoadFavorites(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.Handle{rust}, loaded)
}

func TestAddFavoriteIsSetLike(t *testing.T) {
	s := newStore(t, newFakeKV())

	s.AddFavorite(alice, rust)
	s.AddFavorite(alice, memes)
	favs := s.AddFavorite(alice, rust)

	assert.Equal(t, []domain.Handle{rust, memes}, favs)
}

func TestRemoveFavoriteRemovesAllOccurrences(t *testing.T) {
	kv := newFakeKV()
	scope := settings.Scope{UserHandle: alice.String()}
	require.NoError(t, kv.Set(context.Background(), settings.FavoriteCommunities,
		[]domain.Handle{rust, memes, rust}, scope))

	s := newStore(t, kv)
	_, err := s.LoadFavorites(context.Background(), alice)
	require.NoError(t, err)

	favs := s.RemoveFavorite(alice, rust)
	assert.Equal(t, []domain.Handle{memes}, favs)
	assert.NotContains(t, s.Favorites(), rust)

	flush(t, s)

	var stored []domain.Handle
	require.True(t, kv.stored(t, settings.FavoriteCommunities, scope, &stored))
	assert.Equal(t, []domain.Handle{memes}, stored)
}

func TestFavoriteWritesWithoutUserAreNoops(t *testing.T) {
	kv := newFakeKV()
	s := newStore(t, kv)

	assert.Empty(t, s.AddFavorite("", rust))
	assert.Empty(t, s.RemoveFavorite("", rust))
	s.SetSort("", rust, domain.SortHot)

	flush(t, s)
	assert.Empty(t, kv.data)
}

func TestSetSortThenSortHitsMemory(t *testing.T) {
	kv := newFakeKV()
	s := newStore(t, kv)

	s.SetSort(alice, rust, domain.SortHot)

	sort, ok, err := s.Sort(context.Background(), alice, rust)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.SortHot, sort)
	assert.Equal(t, 0, kv.getCount(), "a cached sort must not hit durable storage")
}

func TestSortLoadsLazilyOnce(t *testing.T) {
	kv := newFakeKV()
	require.NoError(t, kv.Set(context.Background(), settings.DefaultPostSort, domain.SortTopWeek,
		settings.Scope{UserHandle: alice.String(), Community: rust.String()}))
	s := newStore(t, kv)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sort, ok, err := s.Sort(ctx, alice, rust)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, domain.SortTopWeek, sort)
	}
	assert.Equal(t, 1, kv.getCount())

	// absence is not cached
	_, ok, err := s.Sort(ctx, alice, memes)
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, _ = s.Sort(ctx, alice, memes)
	assert.Equal(t, 3, kv.getCount())
}

func TestSortWithoutUserClearsMapping(t *testing.T) {
	s := newStore(t, newFakeKV())
	s.SetSort(alice, rust, domain.SortNew)

	_, ok, err := s.Sort(context.Background(), "", rust)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.Sorts())
}

func TestSortReadError(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("disk on fire")
	s := newStore(t, kv)

	_, _, err := s.Sort(context.Background(), alice, rust)
	assert.ErrorContains(t, err, "disk on fire")

	_, err = s.LoadFavorites(context.Background(), alice)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestSequentialSetSortKeepsLatestInMemory(t *testing.T) {
	kv := newFakeKV()
	// The first write is the slow one: in-memory state must not care.
	kv.setDelay = func(value any) time.Duration {
		if value == domain.SortHot {
			return 50 * time.Millisecond
		}
		return 0
	}
	s := newStore(t, kv)

	s.SetSort(alice, rust, domain.SortHot)
	s.SetSort(alice, rust, domain.SortNew)

	assert.Equal(t, domain.SortNew, s.Sorts()[rust])

	flush(t, s)

	assert.Equal(t, domain.SortNew, s.Sorts()[rust])
	var stored domain.SortType
	require.True(t, kv.stored(t, settings.DefaultPostSort,
		settings.Scope{UserHandle: alice.String(), Community: rust.String()}, &stored))
	assert.Equal(t, domain.SortNew, stored, "writes land in issue order")
}

func TestWriteFailureIsNotSurfaced(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("read-only filesystem")
	s := newStore(t, kv)

	s.SetSort(alice, rust, domain.SortHot)
	favs := s.AddFavorite(alice, rust)

	assert.Equal(t, []domain.Handle{rust}, favs)
	assert.Equal(t, domain.SortHot, s.Sorts()[rust])
	flush(t, s)
}

func TestOwnerSwitchKeepsNamespacesDisjoint(t *testing.T) {
	kv := newFakeKV()
	s := newStore(t, kv)

	s.AddFavorite(alice, rust)
	s.SetSort(alice, rust, domain.SortHot)

	favs, err := s.LoadFavorites(context.Background(), bob)
	require.NoError(t, err)
	assert.Empty(t, favs)
	assert.Empty(t, s.Sorts())

	flush(t, s)

	var stored []domain.Handle
	assert.False(t, kv.stored(t, settings.FavoriteCommunities, settings.Scope{UserHandle: bob.String()}, &stored))
	assert.True(t, kv.stored(t, settings.FavoriteCommunities, settings.Scope{UserHandle: alice.String()}, &stored))
}

func TestReset(t *testing.T) {
	s := newStore(t, newFakeKV())
	s.AddFavorite(alice, rust)
	s.SetSort(alice, rust, domain.SortHot)

	s.Reset()

	assert.Empty(t, s.Favorites())
	assert.Empty(t, s.Sorts())
}

func TestQueueFullDropsWrites(t *testing.T) {
	kv := newFakeKV()
	release := make(chan struct{})
	kv.setDelay = func(any) time.Duration {
		<-release
		return 0
	}
	s := New(kv, logger.Nop(), Options{QueueSize: 1, WriteTimeout: time.Second})

	// one in flight, one queued, the rest dropped; none of these calls block
	for i := 0; i < 10; i++ {
		s.SetSort(alice, rust, domain.SortTypes()[i])
	}
	assert.Equal(t, domain.SortTypes()[9], s.Sorts()[rust])

	close(release)
	flush(t, s)
}

func TestCloseWithExpiredContext(t *testing.T) {
	kv := newFakeKV()
	release := make(chan struct{})
	kv.setDelay = func(any) time.Duration {
		<-release
		return 0
	}
	s := New(kv, logger.Nop(), Options{QueueSize: 4})
	s.SetSort(alice, rust, domain.SortHot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Close(ctx))

	close(release)
	flush(t, s)

	// writes after close are dropped silently
	s.SetSort(alice, rust, domain.SortNew)
}

func TestFavoritesLoaded(t *testing.T) {
	s := newStore(t, newFakeKV())
	ctx := context.Background()

	assert.False(t, s.FavoritesLoaded(alice))

	_, err := s.LoadFavorites(ctx, alice)
	require.NoError(t, err)
	assert.True(t, s.FavoritesLoaded(alice))
	assert.False(t, s.FavoritesLoaded(bob))
	assert.False(t, s.FavoritesLoaded(""))

	s.AddFavorite(alice, rust)
	assert.True(t, s.FavoritesLoaded(alice), "writes keep the loaded list")

	s.SetSort(bob, rust, domain.SortHot)
	assert.False(t, s.FavoritesLoaded(alice), "owner change drops it")

	_, err = s.LoadFavorites(ctx, alice)
	require.NoError(t, err)
	s.Reset()
	assert.False(t, s.FavoritesLoaded(alice))
}

func (f *fakeKV) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func TestLoadFavoritesSeesQueuedWrites(t *testing.T) {
	kv := newFakeKV()
	kv.setDelay = func(any) time.Duration { return 50 * time.Millisecond }
	s := newStore(t, kv)
	ctx := context.Background()

	_, err := s.LoadFavorites(ctx, alice)
	require.NoError(t, err)
	s.AddFavorite(alice, rust)

	// the durable write is still in flight
	favs, err := s.LoadFavorites(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.Handle{rust}, favs)

	s.AddFavorite(alice, memes)
	flush(t, s)

	var stored []domain.Handle
	require.True(t, kv.stored(t, settings.FavoriteCommunities, settings.Scope{UserHandle: alice.String()}, &stored))
	assert.Equal(t, []domain.Handle{rust, memes}, stored, "no favorite lost to a stale read")
}

func TestLoadFavoritesAfterResetSeesQueuedWrite(t *testing.T) {
	kv := newFakeKV()
	kv.setDelay = func(any) time.Duration { return 50 * time.Millisecond }
	s := newStore(t, kv)
	ctx := context.Background()

	s.AddFavorite(alice, rust)
	s.RemoveFavorite(alice, rust)
	s.AddFavorite(alice, memes)
	s.Reset()

	favs, err := s.LoadFavorites(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.Handle{memes}, favs, "latest queued value wins")
	assert.Equal(t, 0, kv.getCount(), "queued value served without a durable read")
}

func TestSortSeesQueuedWriteAfterReset(t *testing.T) {
	kv := newFakeKV()
	kv.setDelay = func(any) time.Duration { return 50 * time.Millisecond }
	s := newStore(t, kv)

	s.SetSort(alice, rust, domain.SortHot)
	s.Reset() // logout, then back in as alice

	sort, ok, err := s.Sort(context.Background(), alice, rust)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.SortHot, sort)

	flush(t, s)

	var stored domain.SortType
	require.True(t, kv.stored(t, settings.DefaultPostSort,
		settings.Scope{UserHandle: alice.String(), Community: rust.String()}, &stored))
	assert.Equal(t, domain.SortHot, stored)
}

func TestFailedWriteFallsBackToDurableValue(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("read-only filesystem")
	s := newStore(t, kv)

	s.AddFavorite(alice, rust)
	require.Eventually(t, func() bool {
		_, queued, _ := s.writer.lookup(settings.FavoriteCommunities, settings.Scope{UserHandle: alice.String()})
		return !queued && kv.setCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Reset()
	favs, err := s.LoadFavorites(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, favs)
}
