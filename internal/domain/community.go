package domain

// Community mirrors the community object returned by a Lemmy instance.
// Only the fields the cache and the API surface care about are kept.
type Community struct {
	ID                      int64  `json:"id"`
	Name                    string `json:"name"`
	Title                   string `json:"title"`
	Description             string `json:"description,omitempty"`
	ActorID                 string `json:"actor_id"`
	Local                   bool   `json:"local"`
	Icon                    string `json:"icon,omitempty"`
	Banner                  string `json:"banner,omitempty"`
	NSFW                    bool   `json:"nsfw"`
	Removed                 bool   `json:"removed"`
	Deleted                 bool   `json:"deleted"`
	Hidden                  bool   `json:"hidden"`
	PostingRestrictedToMods bool   `json:"posting_restricted_to_mods"`
	InstanceID              int64  `json:"instance_id"`
	Published               string `json:"published,omitempty"`
	Updated                 string `json:"updated,omitempty"`
}

// Handle returns "name@host" where host comes from the actor id.
func (c Community) Handle() (Handle, error) {
	return handleFromActor(c.Name, c.ActorID)
}

// CommunityAggregates are the counters attached to a community view.
type CommunityAggregates struct {
	Subscribers         int64 `json:"subscribers"`
	Posts               int64 `json:"posts"`
	Comments            int64 `json:"comments"`
	UsersActiveDay      int64 `json:"users_active_day"`
	UsersActiveWeek     int64 `json:"users_active_week"`
	UsersActiveMonth    int64 `json:"users_active_month"`
	UsersActiveHalfYear int64 `json:"users_active_half_year"`
}

// SubscribedType is the follow state of the logged-in user for a community.
type SubscribedType string

const (
	Subscribed    SubscribedType = "Subscribed"
	NotSubscribed SubscribedType = "NotSubscribed"
	Pending       SubscribedType = "Pending"
)

// CommunityView is the snapshot stored in the cache. It is always replaced
// wholesale, never merged field by field.
type CommunityView struct {
	Community  Community           `json:"community"`
	Subscribed SubscribedType      `json:"subscribed"`
	Blocked    bool                `json:"blocked"`
	Counts     CommunityAggregates `json:"counts"`
}

// Handle is a shortcut for v.Community.Handle().
func (v CommunityView) Handle() (Handle, error) {
	return v.Community.Handle()
}

// Person is a user account as exposed by the API.
type Person struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	ActorID     string `json:"actor_id"`
	Local       bool   `json:"local"`
	Avatar      string `json:"avatar,omitempty"`
	BotAccount  bool   `json:"bot_account"`
}

// Handle returns "name@host" where host comes from the actor id.
func (p Person) Handle() (Handle, error) {
	return handleFromActor(p.Name, p.ActorID)
}

// CommunityModeratorView is one entry of a community's ordered moderator list.
type CommunityModeratorView struct {
	Community Community `json:"community"`
	Moderator Person    `json:"moderator"`
}
