package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
)

func event(name, venue, source string, genres ...string) model.Event {
	return model.Event{ID: name, Name: name, Venue: &model.Venue{Name: venue}, Source: source, Genres: genres}
}

func TestApplyRules(t *testing.T) {
	eng, err := New(config.PostProcessConfig{
		Keywords: []config.KeywordRule{
			{When: []string{"jazz", "night"}, Genres: []string{"Jazz"}},
			{When: []string{"stand-up"}, Genres: []string{"comedy"}},
		},
		Regex: []config.RegexRule{
			{Field: "venue", Expr: `(?i)\btheat(er|re)\b`, Genres: []string{"theatre"}},
			{Field: "source", Expr: `^sg-`, Genres: []string{"resale"}},
		},
		Maps: []config.MapRule{
			{Field: "venue", Mapping: map[string]string{"Blue Note": "jazz", "Comedy Cellar": "comedy"}},
		},
	})
	require.NoError(t, err)
	require.False(t, eng.Empty())

	in := []model.Event{
		event("Late Jazz Night", "Blue Note", "tm", "Blues"),
		event("Stand-Up Showcase", "comedy cellar ", "sg-resale", "Comedy"),
		event("Hamlet", "Lyceum Theatre", "tm"),
		event("Jazz Brunch", "Smalls", "tm"),
	}
	out := eng.Apply(in)
	require.Len(t, out, 4)

	assert.Equal(t, []string{"Blues", "Jazz"}, out[0].Genres)
	assert.Equal(t, []string{"Comedy", "resale"}, out[1].Genres)
	assert.Equal(t, []string{"theatre"}, out[2].Genres)
	assert.Nil(t, out[3].Genres, "keyword rules need every word")

	// inputs are not mutated
	assert.Equal(t, []string{"Blues"}, in[0].Genres)
	assert.Nil(t, in[2].Genres)
}

func TestNewRejectsBadRules(t *testing.T) {
	_, err := New(config.PostProcessConfig{Regex: []config.RegexRule{{Field: "name", Expr: "("}}})
	assert.Error(t, err)

	_, err = New(config.PostProcessConfig{Regex: []config.RegexRule{{Field: "summary", Expr: "x"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "summary"`)

	_, err = New(config.PostProcessConfig{Maps: []config.MapRule{{Field: "country", Mapping: map[string]string{"US": "x"}}}})
	assert.Error(t, err)
}

func TestEmptyEngineIsPassThrough(t *testing.T) {
	eng, err := New(config.PostProcessConfig{
		Keywords: []config.KeywordRule{{When: []string{"  "}, Genres: []string{"x"}}},
	})
	require.NoError(t, err)
	assert.True(t, eng.Empty())

	in := []model.Event{event("A", "B", "C")}
	assert.Equal(t, in, eng.Apply(in))

	var nilEngine *Engine
	assert.True(t, nilEngine.Empty())
	assert.Equal(t, in, nilEngine.Apply(in))
}
