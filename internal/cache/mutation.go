package cache

import (
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
)

// ErrUnknownMutation is returned by Apply for a Kind it does not handle.
var ErrUnknownMutation = errors.New("unknown cache mutation")

// MutationKind discriminates the payload carried by a Mutation.
type MutationKind int

const (
	// ReceivedCommunity replaces one snapshot (follow/block responses).
	ReceivedCommunity MutationKind = iota + 1
	// ReceivedCommunityResponse replaces a snapshot and its moderators.
	ReceivedCommunityResponse
	// ReceivedTrending replaces the trending list.
	ReceivedTrending
	// ResetCommunities empties the store.
	ResetCommunities
)

func (k MutationKind) String() string {
	switch k {
	case ReceivedCommunity:
		return "received_community"
	case ReceivedCommunityResponse:
		return "received_community_response"
	case ReceivedTrending:
		return "received_trending"
	case ResetCommunities:
		return "reset_communities"
	default:
		return fmt.Sprintf("mutation(%d)", int(k))
	}
}

// Mutation is a write to the store. Only the fields matching Kind are read.
type Mutation struct {
	Kind       MutationKind
	Community  domain.CommunityView
	Moderators []domain.CommunityModeratorView
	Trending   []domain.CommunityView
}

func CommunityReceived(v domain.CommunityView) Mutation {
	return Mutation{Kind: ReceivedCommunity, Community: v}
}

func CommunityResponseReceived(r domain.GetCommunityResponse) Mutation {
	return Mutation{Kind: ReceivedCommunityResponse, Community: r.CommunityView, Moderators: r.Moderators}
}

func TrendingReceived(list []domain.CommunityView) Mutation {
	return Mutation{Kind: ReceivedTrending, Trending: list}
}

func Reset() Mutation {
	return Mutation{Kind: ResetCommunities}
}

// Apply performs m. Snapshot mutations are keyed by the handle derived from
// the snapshot itself, which is returned (empty for list/reset mutations).
func (s *Store) Apply(m Mutation) (domain.Handle, error) {
	switch m.Kind {
	case ReceivedCommunity:
		h, err := m.Community.Handle()
		if err != nil {
			return "", fmt.Errorf("apply %s: %w", m.Kind, err)
		}
		s.Put(h, m.Community)
		return h, nil

	case ReceivedCommunityResponse:
		h, err := s.PutResponse(domain.GetCommunityResponse{CommunityView: m.Community, Moderators: m.Moderators})
		if err != nil {
			return "", fmt.Errorf("apply %s: %w", m.Kind, err)
		}
		return h, nil

	case ReceivedTrending:
		s.PutTrending(m.Trending)
		return "", nil

	case ResetCommunities:
		s.Reset()
		return "", nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMutation, m.Kind)
	}
}
