package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextScoreExactSubstring(t *testing.T) {
	e := NewEngine(DefaultWeights())

	testCases := []struct {
		name    string
		content string
		query   string
	}{
		{"exact phrase", "I walked by the lake this morning", "walked by the lake"},
		{"case insensitive", "Walking By The Lake", "walking by the lake"},
		{"whole content", "morning walk", "morning walk"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, 0.9, e.textScore(tc.content, tc.query), 1e-9)
		})
	}
}

func TestTextScoreWordRatio(t *testing.T) {
	e := NewEngine(DefaultWeights())

	// Two of two significant words matched whole: 0.7 * 1.0
	score := e.textScore("the lake was calm this morning", "morning lake")
	assert.InDelta(t, 0.7, score, 1e-9)

	// One of two matched: 0.7 * 0.5
	score = e.textScore("the lake was calm", "morning lake")
	assert.InDelta(t, 0.35, score, 1e-9)
}

func TestTextScorePartialRatio(t *testing.T) {
	e := NewEngine(DefaultWeights())

	// "walk" appears only inside "walking": whole-word ratio 0,
	// partial ratio 1.0 -> 0.4
	score := e.textScore("walking to work", "walk")
	assert.InDelta(t, 0.4, score, 1e-9)
}

func TestTextScoreExactBeatsPartial(t *testing.T) {
	e := NewEngine(DefaultWeights())

	exact := e.textScore("watching the sunset from the pier", "sunset from the pier")
	partial := e.textScore("watching the sunsets from piers", "sunset from the pier")
	assert.Greater(t, exact, partial)
}

func TestTextScoreNoMatch(t *testing.T) {
	e := NewEngine(DefaultWeights())

	assert.Zero(t, e.textScore("completely unrelated content", "quantum chromodynamics"))
	assert.Zero(t, e.textScore("anything", ""))
}

func TestTextScoreShortWordsIgnored(t *testing.T) {
	e := NewEngine(DefaultWeights())

	// "at", "of", "to" are below the length threshold; only "lake" counts.
	score := e.textScore("the lake", "at of to lake")
	assert.InDelta(t, 0.7, score, 1e-9)

	// Query of only short words has no significant words to match.
	assert.Zero(t, e.textScore("the lake", "at of to"))
}
