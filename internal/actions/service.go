// Package actions holds the sync actions: each one calls the active
// account's Lemmy client once and merges the answer into the cache store.
//
// Without an active session every action does nothing and returns a nil
// result with a nil error. Remote failures are returned as-is, never retried.
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/lemcache/internal/cache"
	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/lemmy"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/prefs"
	"github.com/MrSnakeDoc/lemcache/internal/session"
	"github.com/MrSnakeDoc/lemcache/internal/sources/accounts"
)

const DefaultTrendingLimit = 6

// ErrPreferences wraps failures to read the preference store, as opposed
// to failures of the Lemmy instance.
var ErrPreferences = errors.New("preferences unavailable")

type Options struct {
	TrendingLimit int             // communities per trending fetch (default 6)
	DefaultSort   domain.SortType // sort of communities without a preference (default Active)
}

// Service wires the cache, the preference store and the session together.
type Service struct {
	cache   *cache.Store
	prefs   *prefs.Store
	session *session.Manager
	logger  logger.Logger

	trendingLimit int
	defaultSort   domain.SortType
}

func New(c *cache.Store, p *prefs.Store, s *session.Manager, log logger.Logger, opts Options) *Service {
	if opts.TrendingLimit <= 0 {
		opts.TrendingLimit = DefaultTrendingLimit
	}
	if !opts.DefaultSort.Valid() {
		opts.DefaultSort = domain.SortActive
	}
	return &Service{
		cache:         c,
		prefs:         p,
		session:       s,
		logger:        log,
		trendingLimit: opts.TrendingLimit,
		defaultSort:   opts.DefaultSort,
	}
}

// DefaultSort is the sort used for communities without a stored preference.
func (s *Service) DefaultSort() domain.SortType { return s.defaultSort }

// GetCommunity fetches a community with its moderators and caches both.
func (s *Service) GetCommunity(ctx context.Context, h domain.Handle) (*domain.GetCommunityResponse, error) {
	client := s.session.Client()
	if client == nil {
		return nil, nil
	}

	resp, err := client.GetCommunity(ctx, lemmy.GetCommunityParams{Name: h})
	if err != nil {
		return nil, fmt.Errorf("get community %s: %w", h, err)
	}

	s.apply(cache.CommunityResponseReceived(*resp))
	return resp, nil
}

// FollowCommunity follows or unfollows a community and caches the new snapshot.
func (s *Service) FollowCommunity(ctx context.Context, follow bool, communityID int64) (*domain.CommunityView, error) {
	client := s.session.Client()
	if client == nil {
		return nil, nil
	}

	resp, err := client.FollowCommunity(ctx, lemmy.FollowCommunityParams{CommunityID: communityID, Follow: follow})
	if err != nil {
		return nil, fmt.Errorf("follow community %d: %w", communityID, err)
	}

	s.apply(cache.CommunityReceived(resp.CommunityView))
	return &resp.CommunityView, nil
}

// BlockCommunity blocks or unblocks a community, caches the new snapshot and
// refreshes the site state, which carries the user's block list.
// An id of 0 does nothing.
func (s *Service) BlockCommunity(ctx context.Context, block bool, communityID int64) (*domain.CommunityView, error) {
	if communityID == 0 {
		return nil, nil
	}
	client := s.session.Client()
	if client == nil {
		return nil, nil
	}

	resp, err := client.BlockCommunity(ctx, lemmy.BlockCommunityParams{CommunityID: communityID, Block: block})
	if err != nil {
		return nil, fmt.Errorf("block community %d: %w", communityID, err)
	}

	s.apply(cache.CommunityReceived(resp.CommunityView))

	// The block itself went through: a failed refresh only leaves the site stale.
	if _, err := s.RefreshSite(ctx); err != nil {
		s.logger.Warn("site refresh after block failed",
			logger.Int64("community_id", communityID),
			logger.Error(err))
	}
	return &resp.CommunityView, nil
}

// GetTrendingCommunities fetches the hottest communities across all instances
// and replaces the cached trending list.
func (s *Service) GetTrendingCommunities(ctx context.Context) ([]domain.CommunityView, error) {
	client := s.session.Client()
	if client == nil {
		return nil, nil
	}

	resp, err := client.ListCommunities(ctx, lemmy.ListCommunitiesParams{
		Type:  domain.ListingAll,
		Sort:  domain.SortHot,
		Limit: s.trendingLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list trending communities: %w", err)
	}

	s.apply(cache.TrendingReceived(resp.Communities))
	return resp.Communities, nil
}

// RefreshSite reloads the session-wide site state.
func (s *Service) RefreshSite(ctx context.Context) (*domain.GetSiteResponse, error) {
	st, ok := s.session.State()
	client := s.session.Client()
	if !ok || client == nil {
		return nil, nil
	}

	site, err := client.GetSite(ctx)
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}

	if !s.session.SetSite(st.ID, site) {
		s.logger.Debug("session changed during site refresh, dropping result",
			logger.String("session_id", st.ID))
	}
	return site, nil
}

// LoadFavorites reads the active user's favorites from durable storage.
func (s *Service) LoadFavorites(ctx context.Context) ([]domain.Handle, error) {
	return s.prefs.LoadFavorites(ctx, s.session.ActiveHandle())
}

// Favorites returns the in-memory favorites of the active user.
func (s *Service) Favorites() []domain.Handle {
	if s.session.ActiveHandle() == "" {
		return []domain.Handle{}
	}
	return s.prefs.Favorites()
}

// AddFavorite adds h to the active user's favorites. The stored list is
// loaded first if needed, so the write-through never clobbers it.
func (s *Service) AddFavorite(ctx context.Context, h domain.Handle) ([]domain.Handle, error) {
	user := s.session.ActiveHandle()
	if err := s.ensureFavorites(ctx, user); err != nil {
		return nil, err
	}
	return s.prefs.AddFavorite(user, h), nil
}

func (s *Service) RemoveFavorite(ctx context.Context, h domain.Handle) ([]domain.Handle, error) {
	user := s.session.ActiveHandle()
	if err := s.ensureFavorites(ctx, user); err != nil {
		return nil, err
	}
	return s.prefs.RemoveFavorite(user, h), nil
}

func (s *Service) ensureFavorites(ctx context.Context, user domain.Handle) error {
	if user == "" || s.prefs.FavoritesLoaded(user) {
		return nil
	}
	_, err := s.prefs.LoadFavorites(ctx, user)
	return err
}

// CommunitySort returns the active user's sort for h, or the default sort.
func (s *Service) CommunitySort(ctx context.Context, h domain.Handle) (domain.SortType, error) {
	sort, ok, err := s.prefs.Sort(ctx, s.session.ActiveHandle(), h)
	if err != nil {
		return s.defaultSort, err
	}
	if !ok {
		return s.defaultSort, nil
	}
	return sort, nil
}

func (s *Service) SetCommunitySort(h domain.Handle, sort domain.SortType) {
	s.prefs.SetSort(s.session.ActiveHandle(), h, sort)
}

// SwitchAccount makes h the active account. The cache and the preferences of
// the previous account are dropped before the new account's favorites and
// site are loaded.
func (s *Service) SwitchAccount(ctx context.Context, h domain.Handle) error {
	if err := s.session.Switch(h); err != nil {
		return err
	}
	s.resetUserState()
	return s.warmUp(ctx)
}

// Logout ends the session and drops every per-account state.
func (s *Service) Logout() {
	s.session.Logout()
	s.resetUserState()
}

// ApplyAccounts installs a freshly read accounts file. Per-account state is
// only dropped when the active account changed.
func (s *Service) ApplyAccounts(ctx context.Context, a accounts.Accounts) error {
	before, _ := s.session.State()
	prev, next, err := s.session.Replace(a)
	if prev != next {
		s.resetUserState()
	}
	if err != nil {
		return err
	}

	switch after, _ := s.session.State(); {
	case next == "":
		return nil
	case prev != next:
		return s.warmUp(ctx)
	case after.ID != before.ID:
		// same account, new credentials
		_, err := s.RefreshSite(ctx)
		return err
	default:
		return nil
	}
}

func (s *Service) resetUserState() {
	s.apply(cache.Reset())
	s.prefs.Reset()
}

func (s *Service) warmUp(ctx context.Context) error {
	if _, err := s.LoadFavorites(ctx); err != nil {
		return fmt.Errorf("%w: load favorites: %w", ErrPreferences, err)
	}
	if _, err := s.RefreshSite(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Service) apply(m cache.Mutation) {
	h, err := s.cache.Apply(m)
	if err != nil {
		s.logger.Warn("cache mutation rejected",
			logger.String("kind", m.Kind.String()),
			logger.Error(err))
		return
	}
	s.logger.Debug("cache updated",
		logger.String("kind", m.Kind.String()),
		logger.Community(h))
}
