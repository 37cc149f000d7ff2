package domain

import (
	"fmt"
	"strings"
)

// SortType is the post ordering of a feed.
type SortType string

const (
	SortActive         SortType = "Active"
	SortHot            SortType = "Hot"
	SortNew            SortType = "New"
	SortOld            SortType = "Old"
	SortTopDay         SortType = "TopDay"
	SortTopWeek        SortType = "TopWeek"
	SortTopMonth       SortType = "TopMonth"
	SortTopYear        SortType = "TopYear"
	SortTopAll         SortType = "TopAll"
	SortMostComments   SortType = "MostComments"
	SortNewComments    SortType = "NewComments"
	SortTopHour        SortType = "TopHour"
	SortTopSixHour     SortType = "TopSixHour"
	SortTopTwelveHour  SortType = "TopTwelveHour"
	SortTopThreeMonths SortType = "TopThreeMonths"
	SortTopSixMonths   SortType = "TopSixMonths"
	SortTopNineMonths  SortType = "TopNineMonths"
	SortControversial  SortType = "Controversial"
	SortScaled         SortType = "Scaled"
)

var sortTypes = []SortType{
	SortActive, SortHot, SortNew, SortOld,
	SortTopDay, SortTopWeek, SortTopMonth, SortTopYear, SortTopAll,
	SortMostComments, SortNewComments,
	SortTopHour, SortTopSixHour, SortTopTwelveHour,
	SortTopThreeMonths, SortTopSixMonths, SortTopNineMonths,
	SortControversial, SortScaled,
}

// SortTypes lists every known sort, in the order the API documents them.
func SortTypes() []SortType {
	out := make([]SortType, len(sortTypes))
	copy(out, sortTypes)
	return out
}

// ParseSortType matches s against the known sorts, ignoring case.
func ParseSortType(s string) (SortType, error) {
	s = strings.TrimSpace(s)
	for _, st := range sortTypes {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown sort type %q", s)
}

// Valid reports whether s is one of the known sorts (exact spelling).
func (s SortType) Valid() bool {
	for _, st := range sortTypes {
		if st == s {
			return true
		}
	}
	return false
}

// ListingType selects which communities a listing covers.
type ListingType string

const (
	ListingAll           ListingType = "All"
	ListingLocal         ListingType = "Local"
	ListingSubscribed    ListingType = "Subscribed"
	ListingModeratorView ListingType = "ModeratorView"
)
