package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("Will Bitcoin reach $100k by December 31, 2025?")

	assert.Equal(t, []string{"bitcoin"}, e.Names)
	assert.Equal(t, []string{"2025", "dec 31"}, e.Dates)
	assert.Equal(t, []string{"100000"}, e.Numbers)
	assert.Equal(t, []string{"bitcoin", "reach"}, e.Keywords)
	assert.Equal(t, []string{"bitcoin", "reach"}, e.Words)
}

func TestExtractEntities_PhrasesAndQuarters(t *testing.T) {
	e := ExtractEntities("Will the Fed announce a rate cut in Q3?")

	assert.Contains(t, e.Keywords, "rate cut")
	assert.Contains(t, e.Keywords, "fed")
	assert.Contains(t, e.Dates, "q3")
	assert.NotContains(t, e.Words, "the")
}

func TestExtractEntities_LeaguesAreNotNames(t *testing.T) {
	e := ExtractEntities("Lakers win the 2025 NBA Finals?")

	assert.Equal(t, []string{"lakers"}, e.Names)
	assert.Contains(t, e.Keywords, "finals")
	assert.Contains(t, e.Words, "nba")
}

func TestExtractEntities_MonthWordsAreNotDates(t *testing.T) {
	e := ExtractEntities("Will the market decision be made?")
	assert.Empty(t, e.Dates)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,000", 1000, true},
		{"2.5%", 2.5, true},
		{"3 million", 3e6, true},
		{"1.5bn", 1.5e9, true},
		{"$100k", 100_000, true},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestExtractSubject(t *testing.T) {
	tests := []struct {
		q    string
		want string
	}{
		{"Will the Lakers win the 2025 NBA Finals?", "lakers"},
		{"Lakers to win the title", "lakers"},
		{"Will Bitcoin reach $100k?", "bitcoin"},
		{"NBA Finals 2025", ""},
		{"Lakers win the 2025 NBA Finals?", "lakers"},
		{"The Celtics beat the Knicks in Game 7?", "celtics"},
		{"Bitcoin reaches $100k in 2025?", "bitcoin"},
		{"Who will win the NBA Finals?", ""},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSubject(tt.q))
		})
	}
}

func TestSubjectOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, SubjectOverlap("lakers", "los angeles lakers"), 1e-9)
	assert.InDelta(t, 0.0, SubjectOverlap("lakers", "celtics"), 1e-9)
	assert.InDelta(t, 0.0, SubjectOverlap("", "celtics"), 1e-9)
}

func TestJaccardVariants(t *testing.T) {
	assert.InDelta(t, 0.0, Jaccard(nil, nil), 1e-9)
	assert.InDelta(t, 1.0, agreeJaccard(nil, nil), 1e-9)
	assert.InDelta(t, 0.5, Jaccard([]string{"a", "b"}, []string{"b", "c", "a", "d"}), 1e-9)

	assert.InDelta(t, 0.0, Jaccard([]string{"election"}, []string{"elections"}), 1e-9)
	assert.InDelta(t, 1.0, FuzzyJaccard([]string{"election"}, []string{"elections"}), 1e-9)
	// Short tokens never fuzzy-match.
	assert.InDelta(t, 0.0, FuzzyJaccard([]string{"btc"}, []string{"bts"}), 1e-9)
}
