package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Short names are more likely what was typed
	ScoreLengthBonus = 5.0

	// Whole name typed exactly
	ScoreExactNameBonus = 200.0

	// Favorites float above equally matching communities
	ScoreFavoriteBonus = 30.0
)

// Query is parsed search input.
type Query struct {
	Raw               string   // normalized input
	NameFragments     []string // fragments before "@" (or all of them without "@")
	InstanceFragments []string // fragments after "@", split on "." and spaces
	HasInstance       bool     // input contains "@": the instance must match too
}

// ParseQuery parses user input into a Query.
// Examples:
//   - "ask lemmy"        -> name fragments ["ask", "lemmy"]
//   - "rust@prog"        -> ["rust"] + instance ["prog"]
//   - "!memes@lemmy.wor" -> ["memes"] + instance ["lemmy", "wor"]
func ParseQuery(input string) *Query {
	input = strings.ToLower(strings.TrimSpace(input))
	input = strings.TrimLeft(input, "!")
	if input == "" {
		return &Query{Raw: input}
	}

	q := &Query{Raw: input}
	name, instance, found := strings.Cut(input, "@")
	q.NameFragments = splitAndClean(name, " _-")
	if found {
		q.HasInstance = true
		q.InstanceFragments = splitAndClean(instance, " .")
	}
	return q
}

// Empty reports whether the query has nothing to match.
func (q *Query) Empty() bool {
	return q == nil || len(q.NameFragments)+len(q.InstanceFragments) == 0
}

func splitAndClean(s, seps string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) })
	if len(parts) == 0 {
		return nil
	}
	return parts
}

func normalizeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// Score rates how well h matches q. Zero means no match.
//
// Name fragments are matched against the community name. With "@" in the
// query the instance fragments must also match one label of the instance
// host, otherwise the handle scores zero.
func Score(q *Query, h Handle) float64 {
	if q.Empty() || h == "" {
		return 0
	}

	name := h.Name()
	var total float64

	if !q.HasInstance && len(q.NameFragments) == 1 && normalizeFragment(q.NameFragments[0]) == normalizeFragment(name) {
		return ScoreExactMatch + ScoreExactNameBonus
	}

	for _, frag := range q.NameFragments {
		s := scoreFragment(frag, name, 0)
		if s == 0 {
			// every name fragment typed must appear somewhere
			return 0
		}
		total += s
	}

	if q.HasInstance {
		if len(q.InstanceFragments) > 0 {
			labels := strings.Split(h.Instance(), ".")
			instanceScore := 0.0
			for _, frag := range q.InstanceFragments {
				best := 0.0
				for i, label := range labels {
					best = max(best, scoreFragment(frag, label, i))
				}
				if best == 0 {
					return 0
				}
				instanceScore += best
			}
			total += instanceScore
		}
		if len(q.NameFragments) == 1 && normalizeFragment(q.NameFragments[0]) == normalizeFragment(name) {
			total += ScoreExactNameBonus
		}
	}

	if total > 0 && len(name) < 10 {
		total += ScoreLengthBonus
	}
	return total
}

func scoreFragment(queryFrag, target string, position int) float64 {
	queryFrag = normalizeFragment(queryFrag)
	target = normalizeFragment(target)

	if queryFrag == "" || target == "" {
		return 0
	}

	if queryFrag == target {
		return ScoreExactMatch + positionBonus(position)
	}

	if strings.HasPrefix(target, queryFrag) {
		return ScorePrefixMatch + positionBonus(position)
	}

	if idx := strings.Index(target, queryFrag); idx >= 0 {
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(idx)/float64(len(target)))
	}

	if sim := similarity(queryFrag, target); sim > 0.5 {
		return ScoreFuzzyMatch * sim
	}
	return 0
}

func positionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// similarity is the share of runes of a found in b.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	matches, total := 0, 0
	for _, c := range a {
		total++
		if strings.ContainsRune(b, c) {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

// Candidate is a community handle with its match score.
type Candidate struct {
	Handle       Handle  `json:"handle"`
	Favorite     bool    `json:"favorite"`
	LexicalScore float64 `json:"lexical_score"`
	TotalScore   float64 `json:"score"`
}

// RankCandidates scores every distinct handle of known against q and
// returns the matches best first. Ties are broken by handle so the order
// is stable across calls.
func RankCandidates(q *Query, known []Handle, favorites []Handle) []Candidate {
	if q.Empty() {
		return nil
	}

	seen := make(map[Handle]struct{}, len(known)+len(favorites))
	out := make([]Candidate, 0, len(known))

	consider := func(h Handle) {
		if _, dup := seen[h]; dup || h == "" {
			return
		}
		seen[h] = struct{}{}

		lexical := Score(q, h)
		if lexical == 0 {
			return
		}

		c := Candidate{Handle: h, LexicalScore: lexical, TotalScore: lexical}
		if slices.Contains(favorites, h) {
			c.Favorite = true
			c.TotalScore += ScoreFavoriteBonus
		}
		out = append(out, c)
	}

	for _, h := range favorites {
		consider(h)
	}
	for _, h := range known {
		consider(h)
	}

	slices.SortFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return strings.Compare(string(a.Handle), string(b.Handle))
	})
	return out
}

// FindBestMatch returns the best handle for q, if any matches.
func FindBestMatch(q *Query, known, favorites []Handle) (Handle, bool) {
	ranked := RankCandidates(q, known, favorites)
	if len(ranked) == 0 {
		return "", false
	}
	return ranked[0].Handle, true
}
