package cache

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
)

// Store keeps the last fetched snapshot of each community, its moderators and
// the trending list for the lifetime of the process.
//
// Writes are unconditional (last write wins) and nothing is ever evicted;
// Reset is the only way to shrink the store.
type Store struct {
	mu           sync.RWMutex
	communities  map[domain.Handle]domain.CommunityView            // handle -> snapshot
	moderators   map[domain.Handle][]domain.CommunityModeratorView // handle -> ordered moderators
	trending     []domain.CommunityView
	lastTrending time.Time // Timestamp of last trending update
	lastReset    time.Time // Timestamp of last reset
}

// New creates an empty store.
func New() *Store {
	return &Store{
		communities: make(map[domain.Handle]domain.CommunityView),
		moderators:  make(map[domain.Handle][]domain.CommunityModeratorView),
	}
}

// Get returns the snapshot stored for h.
func (s *Store) Get(h domain.Handle) (domain.CommunityView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.communities[h]
	return v, ok
}

// Moderators returns a copy of the moderator list stored for h.
func (s *Store) Moderators(h domain.Handle) ([]domain.CommunityModeratorView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mods, ok := s.moderators[h]
	if !ok {
		return nil, false
	}
	return cloneMods(mods), true
}

// Put stores snapshot under h, replacing whatever was there.
func (s *Store) Put(h domain.Handle, snapshot domain.CommunityView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.communities[h] = snapshot
}

// PutModerators replaces the moderator list of h.
func (s *Store) PutModerators(h domain.Handle, mods []domain.CommunityModeratorView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moderators[h] = cloneMods(mods)
}

// PutResponse stores the snapshot and moderator list of a community fetch
// together, under the handle derived from the snapshot.
func (s *Store) PutResponse(r domain.GetCommunityResponse) (domain.Handle, error) {
	h, err := r.CommunityView.Handle()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.communities[h] = r.CommunityView
	s.moderators[h] = cloneMods(r.Moderators)
	return h, nil
}

// PutTrending replaces the trending snapshot.
func (s *Store) PutTrending(list []domain.CommunityView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trending = cloneViews(list)
	s.lastTrending = time.Now()
}

// Trending returns a copy of the trending snapshot.
func (s *Store) Trending() []domain.CommunityView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneViews(s.trending)
}

// Reset restores the empty initial state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.communities = make(map[domain.Handle]domain.CommunityView)
	s.moderators = make(map[domain.Handle][]domain.CommunityModeratorView)
	s.trending = nil
	s.lastTrending = time.Time{}
	s.lastReset = time.Now()
}

// Count returns the number of cached communities.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.communities)
}

// Handles lists the cached community handles (unordered).
func (s *Store) Handles() []domain.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Handle, 0, len(s.communities))
	for h := range s.communities {
		out = append(out, h)
	}
	return out
}

// LastTrendingUpdate returns when PutTrending last ran (zero after Reset).
func (s *Store) LastTrendingUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastTrending
}

// LastReset returns when Reset last ran.
func (s *Store) LastReset() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastReset
}

func cloneViews(in []domain.CommunityView) []domain.CommunityView {
	if in == nil {
		return nil
	}
	out := make([]domain.CommunityView, len(in))
	copy(out, in)
	return out
}

func cloneMods(in []domain.CommunityModeratorView) []domain.CommunityModeratorView {
	if in == nil {
		return nil
	}
	out := make([]domain.CommunityModeratorView, len(in))
	copy(out, in)
	return out
}
