package domain

import (
	"slices"
	"testing"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		expectedInstance bool
		expectedName     []string
		expectedHost     []string
	}{
		{
			name:         "simple query",
			input:        "rust",
			expectedName: []string{"rust"},
		},
		{
			name:         "several fragments",
			input:        "Ask Lemmy",
			expectedName: []string{"ask", "lemmy"},
		},
		{
			name:         "underscores split the name",
			input:        "rust_lang",
			expectedName: []string{"rust", "lang"},
		},
		{
			name:             "query with instance",
			input:            "rust@prog",
			expectedInstance: true,
			expectedName:     []string{"rust"},
			expectedHost:     []string{"prog"},
		},
		{
			name:             "sigil and dotted instance",
			input:            "!memes@lemmy.wor",
			expectedInstance: true,
			expectedName:     []string{"memes"},
			expectedHost:     []string{"lemmy", "wor"},
		},
		{
			name:             "instance only",
			input:            "@lemmy.ml",
			expectedInstance: true,
			expectedHost:     []string{"lemmy", "ml"},
		},
		{
			name:  "empty query",
			input: "  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseQuery(tt.input)

			if q.HasInstance != tt.expectedInstance {
				t.Errorf("HasInstance = %v, want %v", q.HasInstance, tt.expectedInstance)
			}
			if !slices.Equal(q.NameFragments, tt.expectedName) {
				t.Errorf("NameFragments = %v, want %v", q.NameFragments, tt.expectedName)
			}
			if !slices.Equal(q.InstanceFragments, tt.expectedHost) {
				t.Errorf("InstanceFragments = %v, want %v", q.InstanceFragments, tt.expectedHost)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		handle         Handle
		expectPositive bool
	}{
		{name: "exact name", query: "rust", handle: "rust@programming.dev", expectPositive: true},
		{name: "prefix", query: "ru", handle: "rust@programming.dev", expectPositive: true},
		{name: "no match", query: "xyz", handle: "rust@programming.dev"},
		{name: "instance match", query: "rust@prog", handle: "rust@programming.dev", expectPositive: true},
		{name: "instance mismatch", query: "rust@lemmy", handle: "rust@programming.dev"},
		{name: "instance only", query: "@lemmy.ml", handle: "asklemmy@lemmy.ml", expectPositive: true},
		{name: "every fragment must match", query: "rust xyz", handle: "rust@programming.dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(ParseQuery(tt.query), tt.handle)

			if tt.expectPositive && score <= 0 {
				t.Errorf("expected positive score, got %f", score)
			}
			if !tt.expectPositive && score > 0 {
				t.Errorf("expected zero score, got %f", score)
			}
		})
	}
}

func TestScoreExactBeatsPrefix(t *testing.T) {
	q := ParseQuery("rust")
	exact := Score(q, "rust@programming.dev")
	prefix := Score(q, "rustaceans@lemmy.ml")

	if exact <= prefix {
		t.Errorf("exact %f should beat prefix %f", exact, prefix)
	}
}

func TestRankCandidates(t *testing.T) {
	known := []Handle{"memes@lemmy.world", "rustaceans@lemmy.ml", "rust@programming.dev", "rust@programming.dev"}
	favorites := []Handle{"rustaceans@lemmy.ml"}

	got := RankCandidates(ParseQuery("rust"), known, favorites)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Handle != "rust@programming.dev" || got[0].Favorite {
		t.Errorf("first = %+v, want rust@programming.dev (not favorite)", got[0])
	}
	if got[1].Handle != "rustaceans@lemmy.ml" || !got[1].Favorite {
		t.Errorf("second = %+v, want favorite rustaceans@lemmy.ml", got[1])
	}
	if got[1].TotalScore != got[1].LexicalScore+ScoreFavoriteBonus {
		t.Errorf("favorite bonus not applied: %+v", got[1])
	}
}

func TestRankCandidatesTieBreak(t *testing.T) {
	known := []Handle{"news@lemmy.world", "news@lemmy.ml"}

	got := RankCandidates(ParseQuery("news"), known, nil)

	if len(got) != 2 || got[0].Handle != "news@lemmy.ml" || got[1].Handle != "news@lemmy.world" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestRankCandidatesEmptyQuery(t *testing.T) {
	if got := RankCandidates(ParseQuery(""), []Handle{"rust@programming.dev"}, nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestFindBestMatch(t *testing.T) {
	known := []Handle{"asklemmy@lemmy.ml", "memes@lemmy.world"}

	h, ok := FindBestMatch(ParseQuery("ask"), known, nil)
	if !ok || h != "asklemmy@lemmy.ml" {
		t.Errorf("got %q, %v", h, ok)
	}

	if _, ok := FindBestMatch(ParseQuery("zzz"), known, nil); ok {
		t.Error("expected no match")
	}
}
