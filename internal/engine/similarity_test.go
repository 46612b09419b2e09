package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "empty left", a: "", b: "jazz", want: 0},
		{name: "empty right", a: "jazz", b: "", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "identical", a: "jazz night", b: "jazz night", want: 1},
		{name: "classic kitten", a: "kitten", b: "sitting", want: 1 - 3.0/7.0},
		{name: "length ratio over 2 short-circuits", a: "ab", b: "abcde", want: 0},
		{name: "length ratio exactly 2 is compared", a: "abcd", b: "ab", want: 0.5},
		{name: "single typo", a: "hamilton", b: "hamiltn", want: 1 - 1.0/8.0},
		{name: "multibyte counted in runes", a: "café", b: "cafe", want: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NameSimilarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, NameSimilarity(tt.b, tt.a), 1e-9, "similarity must be symmetric")
		})
	}
}

func TestNormalizeEventName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jazz Night (NY)", "jazz night"},
		{"Jazz Night (NYC)", "jazz night"},
		{"Jazz Night - New York", "jazz night"},
		{"Jazz Night - NYC", "jazz night"},
		{"Jazz Night-NY", "jazz night"},
		{"  Jazz   Night  ", "jazz night"},
		{"New York Philharmonic", "new york philharmonic"},
		{"Jazz Night (NY) - NYC", "jazz night"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEventName(tt.in))
		})
	}
}

func TestNormalizeVenueName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blue Note", "blue note"},
		{"Blue Note - NYC", "blue note"},
		{"Blue Note, New York, NY", "blue note"},
		{"Blue Note (NY)", "blue note"},
		{"Lyceum Theater", "lyceum"},
		{"Booth Theatre, New York", "booth"},
		{"Theater for the New City", "theater for the new city"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeVenueName(tt.in))
		})
	}
}

func TestVenueSimilarityIgnoresQualifiers(t *testing.T) {
	assert.Equal(t, 1.0, VenueSimilarity("Booth Theatre", "booth theater, new york"))
	assert.Less(t, VenueSimilarity("Smalls", "Birdland"), 0.3)
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(blueNoteLat, blueNoteLon, blueNoteLat, blueNoteLon), 1e-12)
	assert.InDelta(t, 0.08, HaversineKm(blueNoteLat, blueNoteLon, kmNorth(blueNoteLat, 0.08), blueNoteLon), 1e-6)

	// JFK -> LAX is roughly 3974 km on a 6371 km sphere
	d := HaversineKm(40.6413, -73.7781, 33.9416, -118.4085)
	assert.InDelta(t, 3974, d, 15)
}
