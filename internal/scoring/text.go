package scoring

import "strings"

// minQueryWordLen excludes short stop-ish words from word-level matching.
const minQueryWordLen = 3

// textScore rates how well record text matches a free-text query.
//
// A case-insensitive exact substring match of the full query scores
// ExactMatch. Otherwise the score is the better of two ratio signals:
// WordMatch times the fraction of query words matched whole, or
// PartialMatch times the fraction of query words found inside a longer
// content word. Query words shorter than three characters are ignored.
func (e *Engine) textScore(content, query string) float64 {
	content = strings.ToLower(content)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0
	}

	if strings.Contains(content, query) {
		return e.weights.ExactMatch
	}

	queryWords := significantWords(query)
	if len(queryWords) == 0 {
		return 0
	}
	contentWords := strings.Fields(content)

	whole := 0
	partial := 0
	for _, qw := range queryWords {
		if containsWholeWord(contentWords, qw) {
			whole++
		}
		if containsWithinWord(contentWords, qw) {
			partial++
		}
	}

	wordRatio := float64(whole) / float64(len(queryWords))
	partialRatio := float64(partial) / float64(len(queryWords))

	score := e.weights.WordMatch * wordRatio
	if p := e.weights.PartialMatch * partialRatio; p > score {
		score = p
	}
	return score
}

// significantWords splits a query and drops words too short to match on.
func significantWords(query string) []string {
	fields := strings.Fields(query)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minQueryWordLen {
			words = append(words, f)
		}
	}
	return words
}

// containsWholeWord reports whether word appears as an entire content word.
func containsWholeWord(contentWords []string, word string) bool {
	for _, cw := range contentWords {
		if cw == word {
			return true
		}
	}
	return false
}

// containsWithinWord reports whether word appears as a substring of any
// content word.
func containsWithinWord(contentWords []string, word string) bool {
	for _, cw := range contentWords {
		if strings.Contains(cw, word) {
			return true
		}
	}
	return false
}
