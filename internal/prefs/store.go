// Package prefs holds the active user's favorite communities and
// per-community sort preferences, persisted through a settings.Store.
//
// Reads fill an in-memory copy that serves the rest of the session. Writes
// update that copy immediately and are persisted in the background; the
// caller never waits on, or hears about, the durable write. Reads see
// writes that are still queued.
package prefs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/settings"
)

// Options tunes the background writer.
type Options struct {
	QueueSize    int           // pending writes before new ones are dropped
	WriteTimeout time.Duration // timeout of each durable write
}

// Store is the Preference Store. The in-memory state belongs to a single user
// at a time: calling it with another user handle first drops the previous
// user's state.
type Store struct {
	kv     settings.Store
	writer *writer
	logger logger.Logger

	mu              sync.Mutex
	owner           domain.Handle
	favorites       []domain.Handle
	favoritesLoaded bool // favorites hold owner's durable list
	sortByHandle    map[domain.Handle]domain.SortType
}

// New creates the store and starts its background writer. Call Close on shutdown.
func New(kv settings.Store, log logger.Logger, opts Options) *Store {
	return &Store{
		kv:           kv,
		writer:       newWriter(kv, log.Named("prefs.writer"), opts.QueueSize, opts.WriteTimeout),
		logger:       log,
		sortByHandle: make(map[domain.Handle]domain.SortType),
	}
}

// LoadFavorites reads the user's favorites from durable storage and makes them
// the in-memory list. With no user it clears the list and returns it empty.
func (s *Store) LoadFavorites(ctx context.Context, user domain.Handle) ([]domain.Handle, error) {
	if user == "" {
		s.mu.Lock()
		s.favorites = []domain.Handle{}
		s.favoritesLoaded = false
		s.mu.Unlock()
		return []domain.Handle{}, nil
	}

	scope := userScope(user)
	for attempt := 1; ; attempt++ {
		stored, _, seq, err := readThrough[[]domain.Handle](ctx, s, settings.FavoriteCommunities, scope)
		if err != nil {
			return nil, fmt.Errorf("load favorites: %w", err)
		}

		s.mu.Lock()
		// an Add or Remove ran while reading: read again so it is not lost
		if _, _, now := s.writer.lookup(settings.FavoriteCommunities, scope); now != seq && attempt < maxReadAttempts {
			s.mu.Unlock()
			continue
		}
		s.switchOwnerLocked(user)
		s.favorites = cloneHandles(stored)
		s.favoritesLoaded = true
		out := cloneHandles(s.favorites)
		s.mu.Unlock()
		return out, nil
	}
}

// FavoritesLoaded reports whether LoadFavorites ran for user since the last
// owner change or Reset.
func (s *Store) FavoritesLoaded(user domain.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return user != "" && s.owner == user && s.favoritesLoaded
}

// Favorites returns the in-memory list.
func (s *Store) Favorites() []domain.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneHandles(s.favorites)
}

// AddFavorite appends community to the user's favorites and persists the list.
// It is a no-op without a user or when community is already a favorite.
// The persisted list is the in-memory one, so LoadFavorites must have run for
// user first.
func (s *Store) AddFavorite(user, community domain.Handle) []domain.Handle {
	if user == "" {
		return s.Favorites()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchOwnerLocked(user)

	for _, h := range s.favorites {
		if h == community {
			return cloneHandles(s.favorites)
		}
	}

	s.favorites = append(cloneHandles(s.favorites), community)
	s.persistFavoritesLocked(user)
	return cloneHandles(s.favorites)
}

// RemoveFavorite drops every occurrence of community and persists the list.
// It is a no-op without a user.
func (s *Store) RemoveFavorite(user, community domain.Handle) []domain.Handle {
	if user == "" {
		return s.Favorites()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchOwnerLocked(user)

	kept := make([]domain.Handle, 0, len(s.favorites))
	for _, h := range s.favorites {
		if h != community {
			kept = append(kept, h)
		}
	}
	s.favorites = kept
	s.persistFavoritesLocked(user)
	return cloneHandles(s.favorites)
}

// Sort returns the user's sort for community. The durable store is read only
// when the in-memory mapping has no entry; a stored value is then kept for
// the session. Without a user the mapping is cleared and nothing is returned.
func (s *Store) Sort(ctx context.Context, user, community domain.Handle) (domain.SortType, bool, error) {
	if user == "" {
		s.mu.Lock()
		s.sortByHandle = make(map[domain.Handle]domain.SortType)
		s.mu.Unlock()
		return "", false, nil
	}

	s.mu.Lock()
	s.switchOwnerLocked(user)
	if sort, ok := s.sortByHandle[community]; ok {
		s.mu.Unlock()
		return sort, true, nil
	}
	s.mu.Unlock()

	scope := communityScope(user, community)
	for attempt := 1; ; attempt++ {
		stored, found, seq, err := readThrough[domain.SortType](ctx, s, settings.DefaultPostSort, scope)
		if err != nil {
			return "", false, fmt.Errorf("load sort: %w", err)
		}
		if !found || stored == "" {
			return "", false, nil
		}
		if !stored.Valid() {
			s.logger.Warn("ignoring unknown stored sort",
				logger.Community(community),
				logger.String("sort", string(stored)))
			return "", false, nil
		}

		s.mu.Lock()
		if s.owner != user {
			// the account changed while we were reading
			s.mu.Unlock()
			return stored, true, nil
		}
		// A SetSort that ran during the read wins over the stored value.
		if current, ok := s.sortByHandle[community]; ok {
			s.mu.Unlock()
			return current, true, nil
		}
		if _, _, now := s.writer.lookup(settings.DefaultPostSort, scope); now != seq && attempt < maxReadAttempts {
			s.mu.Unlock()
			continue
		}
		s.sortByHandle[community] = stored
		s.mu.Unlock()
		return stored, true, nil
	}
}

// SetSort records sort for community right away and persists it in the
// background. It is a no-op without a user.
func (s *Store) SetSort(user, community domain.Handle, sort domain.SortType) {
	if user == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchOwnerLocked(user)
	s.sortByHandle[community] = sort

	s.writer.submit(writeOp{
		name:  settings.DefaultPostSort,
		value: sort,
		scope: communityScope(user, community),
	})
}

// Sorts returns a copy of the in-memory sort mapping.
func (s *Store) Sorts() map[domain.Handle]domain.SortType {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.Handle]domain.SortType, len(s.sortByHandle))
	for h, st := range s.sortByHandle {
		out[h] = st
	}
	return out
}

// Reset forgets all in-memory state. Durable data is untouched.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.owner = ""
	s.favorites = []domain.Handle{}
	s.favoritesLoaded = false
	s.sortByHandle = make(map[domain.Handle]domain.SortType)
}

// Close waits for queued writes to be persisted, or for ctx to end.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}

func (s *Store) switchOwnerLocked(user domain.Handle) {
	if s.owner == user {
		return
	}
	if s.owner != "" {
		s.logger.Debug("preference owner changed, dropping in-memory state",
			logger.String("from", s.owner.String()),
			logger.String("to", user.String()))
	}
	s.owner = user
	s.favorites = []domain.Handle{}
	s.favoritesLoaded = false
	s.sortByHandle = make(map[domain.Handle]domain.SortType)
}

func (s *Store) persistFavoritesLocked(user domain.Handle) {
	s.writer.submit(writeOp{
		name:  settings.FavoriteCommunities,
		value: cloneHandles(s.favorites),
		scope: userScope(user),
	})
}

// maxReadAttempts bounds how often a read restarts because a write to the
// same key was submitted while it ran.
const maxReadAttempts = 3

// readThrough reads name/scope, preferring a value still queued in the
// writer over the durable one, which may not have caught up yet. seq is the
// writer sequence the returned value accounts for.
func readThrough[T any](ctx context.Context, s *Store, name settings.Name, scope settings.Scope) (value T, found bool, seq uint64, err error) {
	for attempt := 1; ; attempt++ {
		v, isPending, before := s.writer.lookup(name, scope)
		if isPending {
			if typed, ok := v.(T); ok {
				return typed, true, before, nil
			}
		}

		var stored T
		found, err := s.kv.Get(ctx, name, scope, &stored)
		if err != nil {
			return value, false, 0, err
		}
		if _, _, after := s.writer.lookup(name, scope); after == before || attempt >= maxReadAttempts {
			return stored, found, before, nil
		}
	}
}

func userScope(user domain.Handle) settings.Scope {
	return settings.Scope{UserHandle: user.String()}
}

func communityScope(user, community domain.Handle) settings.Scope {
	return settings.Scope{UserHandle: user.String(), Community: community.String()}
}

func cloneHandles(in []domain.Handle) []domain.Handle {
	out := make([]domain.Handle, len(in))
	copy(out, in)
	return out
}
