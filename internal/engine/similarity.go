package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	// "Jazz Night (NY)", "Jazz Night - New York", "Jazz Night - NYC"
	eventCitySuffix = regexp.MustCompile(`\s*(?:\((?:ny|nyc|new york)\)|-\s*(?:new york|nyc|ny))\s*$`)

	// "Blue Note, New York", "Blue Note - NYC", "Blue Note (NY)"
	venueCitySuffix = regexp.MustCompile(`\s*(?:,\s*(?:new york|nyc|ny|manhattan|brooklyn)(?:,\s*ny)?|-\s*(?:new york|nyc|ny)|\((?:new york|nyc|ny)\))\s*$`)
	// "Booth Theatre", "Lyceum Theater"
	venueTheaterSuffix = regexp.MustCompile(`\s+(?:theater|theatre)\s*$`)

	spaceRuns = regexp.MustCompile(`\s+`)
)

// NameSimilarity returns 1 - levenshtein(a, b) / max(len(a), len(b)).
// It is 0 when either string is empty and 1 when they are identical. Strings
// whose lengths differ by more than 2x score 0 without computing the distance.
func NameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longer, shorter := la, lb
	if shorter > longer {
		longer, shorter = shorter, longer
	}
	if float64(longer)/float64(shorter) > 2 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longer)
}

// NormalizeEventName lowercases a title and strips trailing city tags
// sources append to otherwise identical listings.
func NormalizeEventName(name string) string {
	s := collapse(name)
	for {
		next := eventCitySuffix.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = strings.TrimSpace(next)
	}
}

// NormalizeVenueName lowercases a venue name and strips trailing city and
// theater qualifiers.
func NormalizeVenueName(name string) string {
	s := collapse(name)
	for {
		next := venueCitySuffix.ReplaceAllString(s, "")
		next = strings.TrimSpace(venueTheaterSuffix.ReplaceAllString(next, ""))
		if next == s {
			return s
		}
		s = next
	}
}

// VenueSimilarity compares two venue names after normalization.
func VenueSimilarity(a, b string) float64 {
	return NameSimilarity(NormalizeVenueName(a), NormalizeVenueName(b))
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(strings.ToLower(s), " "))
}
