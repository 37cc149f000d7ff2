package domain

import (
	"errors"
	"testing"
)

func TestParseHandle(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		instance string
		want     Handle
		wantErr  bool
	}{
		{name: "bare name gets default instance", raw: "asklemmy", instance: "lemmy.ml", want: "asklemmy@lemmy.ml"},
		{name: "full handle keeps its instance", raw: "technology@lemmy.world", instance: "lemmy.ml", want: "technology@lemmy.world"},
		{name: "bang sigil and case", raw: "!Technology@Lemmy.World", instance: "", want: "technology@lemmy.world"},
		{name: "surrounding spaces", raw: "  memes@lemmy.ml ", instance: "", want: "memes@lemmy.ml"},
		{name: "empty", raw: "", instance: "lemmy.ml", wantErr: true},
		{name: "bare name without default", raw: "asklemmy", instance: "", wantErr: true},
		{name: "double at", raw: "a@b@c", instance: "", wantErr: true},
		{name: "inner space", raw: "ask lemmy@lemmy.ml", instance: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHandle(tt.raw, tt.instance)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHandle) {
					t.Fatalf("ParseHandle(%q) error = %v, want ErrInvalidHandle", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHandle(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseHandle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCommunityHandleFromActorID(t *testing.T) {
	c := Community{Name: "Rust", ActorID: "https://Programming.dev/c/rust"}

	h, err := c.Handle()
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if h != "rust@programming.dev" {
		t.Errorf("Handle() = %q, want rust@programming.dev", h)
	}
	if h.Name() != "rust" || h.Instance() != "programming.dev" {
		t.Errorf("Name()/Instance() = %q/%q", h.Name(), h.Instance())
	}

	// Same community typed by a user must hit the same key.
	typed, err := ParseHandle("!rust@programming.dev", "lemmy.ml")
	if err != nil {
		t.Fatalf("ParseHandle error = %v", err)
	}
	if typed != h {
		t.Errorf("typed handle %q != derived handle %q", typed, h)
	}
}

func TestCommunityHandleMissingActor(t *testing.T) {
	c := Community{Name: "rust"}
	if _, err := c.Handle(); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("Handle() without actor id error = %v, want ErrInvalidHandle", err)
	}
}

func TestParseSortType(t *testing.T) {
	got, err := ParseSortType("tophour")
	if err != nil || got != SortTopHour {
		t.Errorf("ParseSortType(tophour) = %q, %v", got, err)
	}
	if _, err := ParseSortType("Best"); err == nil {
		t.Error("ParseSortType(Best) should fail")
	}
	if !SortHot.Valid() || SortType("hot").Valid() {
		t.Error("Valid() must only accept exact spellings")
	}
}

func TestBlockedCommunities(t *testing.T) {
	var nilResp *GetSiteResponse
	if got := nilResp.BlockedCommunities(); got != nil {
		t.Errorf("nil response BlockedCommunities() = %v", got)
	}

	resp := &GetSiteResponse{MyUser: &MyUserInfo{
		CommunityBlocks: []CommunityBlockView{
			{Community: Community{Name: "memes", ActorID: "https://lemmy.ml/c/memes"}},
			{Community: Community{Name: "broken"}},
		},
	}}
	got := resp.BlockedCommunities()
	if len(got) != 1 || got[0] != "memes@lemmy.ml" {
		t.Errorf("BlockedCommunities() = %v", got)
	}
}
