package clustering

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/recall-mcp/pkg/types"
)

// minKeywordLen filters out short function words before stopword checks.
const minKeywordLen = 3

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "was": true, "with": true, "that": true, "this": true,
	"have": true, "has": true, "had": true, "from": true, "they": true,
	"there": true, "their": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "about": true, "into": true, "more": true,
	"some": true, "then": true, "them": true, "were": true, "been": true,
	"being": true, "over": true, "very": true, "just": true, "like": true,
}

// corpusStats holds document frequencies over the full record set so
// cluster keywords can be scored against it.
type corpusStats struct {
	docCount int
	docFreq  map[string]int
}

func buildCorpus(records []*types.ExperienceRecord) *corpusStats {
	corpus := &corpusStats{
		docCount: len(records),
		docFreq:  make(map[string]int),
	}
	for _, record := range records {
		seen := make(map[string]bool)
		for _, word := range tokenize(record.Text) {
			if !seen[word] {
				seen[word] = true
				corpus.docFreq[word]++
			}
		}
	}
	return corpus
}

// extractKeywords scores cluster terms TF-IDF style against the full
// corpus and returns the top terms. Ties break alphabetically so output
// is deterministic.
func extractKeywords(records []*types.ExperienceRecord, corpus *corpusStats, limit int) []string {
	termFreq := make(map[string]int)
	for _, record := range records {
		for _, word := range tokenize(record.Text) {
			termFreq[word]++
		}
	}
	if len(termFreq) == 0 {
		return nil
	}

	type scored struct {
		word  string
		score float64
	}
	candidates := make([]scored, 0, len(termFreq))
	for word, tf := range termFreq {
		df := corpus.docFreq[word]
		if df == 0 {
			df = 1
		}
		idf := math.Log(float64(corpus.docCount+1) / float64(df))
		candidates = append(candidates, scored{word: word, score: float64(tf) * idf})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].word < candidates[j].word
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	keywords := make([]string, limit)
	for i := 0; i < limit; i++ {
		keywords[i] = candidates[i].word
	}
	return keywords
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var words []string
	for _, field := range fields {
		if len(field) >= minKeywordLen && !stopwords[field] {
			words = append(words, field)
		}
	}
	return words
}

// labelTemplate maps trigger keywords to a thematic label.
type labelTemplate struct {
	label    string
	triggers []string
}

// labelTemplates is the fixed table consulted in order; the first
// template with a trigger among the cluster's keywords wins.
var labelTemplates = []labelTemplate{
	{"time-of-day patterns", []string{"morning", "evening", "night", "afternoon", "dawn", "dusk"}},
	{"movement and body patterns", []string{"walk", "walking", "run", "running", "breath", "breathing", "body", "stretch"}},
	{"conversation patterns", []string{"conversation", "talk", "talking", "said", "asked", "discussion", "dialogue"}},
	{"work and craft patterns", []string{"work", "working", "writing", "code", "coding", "building", "craft"}},
	{"place patterns", []string{"home", "outside", "room", "city", "garden", "street", "river", "forest"}},
	{"reflection patterns", []string{"thinking", "thought", "wondering", "remembering", "noticing", "realized"}},
	{"feeling patterns", []string{"feeling", "felt", "mood", "calm", "anxious", "joy", "tension"}},
}

// semanticLabel picks a templated label by keyword-pattern matching,
// falling back to the dimension name.
func semanticLabel(dimension string, keywords []string) string {
	keywordSet := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		keywordSet[k] = true
	}
	for _, template := range labelTemplates {
		for _, trigger := range template.triggers {
			if keywordSet[trigger] {
				return template.label
			}
		}
	}
	return fmt.Sprintf("%s patterns", dimension)
}
