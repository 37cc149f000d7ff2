package domain

// Response shapes of the Lemmy endpoints the sync actions call.

type GetCommunityResponse struct {
	CommunityView       CommunityView            `json:"community_view"`
	Moderators          []CommunityModeratorView `json:"moderators"`
	DiscussionLanguages []int64                  `json:"discussion_languages,omitempty"`
}

type CommunityResponse struct {
	CommunityView       CommunityView `json:"community_view"`
	DiscussionLanguages []int64       `json:"discussion_languages,omitempty"`
}

type BlockCommunityResponse struct {
	CommunityView CommunityView `json:"community_view"`
	Blocked       bool          `json:"blocked"`
}

type ListCommunitiesResponse struct {
	Communities []CommunityView `json:"communities"`
}

// SiteView carries the instance description.
type SiteView struct {
	Site struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		ActorID     string `json:"actor_id"`
	} `json:"site"`
}

type CommunityFollowerView struct {
	Community Community `json:"community"`
	Follower  Person    `json:"follower"`
}

type CommunityBlockView struct {
	Community Community `json:"community"`
	Person    Person    `json:"person"`
}

// MyUserInfo is only present when the request was authenticated.
type MyUserInfo struct {
	LocalUserView struct {
		Person Person `json:"person"`
	} `json:"local_user_view"`
	Follows         []CommunityFollowerView  `json:"follows"`
	Moderates       []CommunityModeratorView `json:"moderates"`
	CommunityBlocks []CommunityBlockView     `json:"community_blocks"`
}

// GetSiteResponse is the session-wide state refreshed after blocking a community.
type GetSiteResponse struct {
	SiteView SiteView    `json:"site_view"`
	MyUser   *MyUserInfo `json:"my_user,omitempty"`
	Version  string      `json:"version"`
}

// BlockedCommunities returns the handles the logged-in user has blocked.
// Entries whose actor id cannot be parsed are skipped.
func (r *GetSiteResponse) BlockedCommunities() []Handle {
	if r == nil || r.MyUser == nil {
		return nil
	}
	out := make([]Handle, 0, len(r.MyUser.CommunityBlocks))
	for _, b := range r.MyUser.CommunityBlocks {
		if h, err := b.Community.Handle(); err == nil {
			out = append(out, h)
		}
	}
	return out
}
