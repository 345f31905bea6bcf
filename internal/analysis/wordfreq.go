// Package analysis provides local, deterministic text analysis passes that
// need no remote provider.
package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// WordCount is one entry of a word-frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// minWordLength filters out single-character tokens.
const minWordLength = 2

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}']+`)

// Common filler words excluded from frequency tables.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "was": {}, "this": {}, "that": {},
	"with": {}, "have": {}, "from": {}, "they": {}, "will": {}, "what": {},
	"its": {}, "it's": {}, "your": {}, "just": {}, "out": {}, "about": {},
	"who": {}, "get": {}, "which": {}, "when": {}, "there": {}, "than": {},
	"been": {}, "were": {}, "into": {}, "them": {}, "then": {}, "some": {},
	"would": {}, "could": {}, "should": {}, "very": {}, "more": {}, "also": {},
}

// Frequencies tokenizes the given texts and returns the full frequency
// table sorted by count descending. Ties keep first-occurrence order, so
// the result is deterministic for identical input.
func Frequencies(texts []string) []WordCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	position := 0

	for _, text := range texts {
		for _, token := range tokenRegex.FindAllString(strings.ToLower(text), -1) {
			if len([]rune(token)) < minWordLength {
				continue
			}
			if _, skip := stopwords[token]; skip {
				continue
			}
			if _, seen := counts[token]; !seen {
				firstSeen[token] = position
				position++
			}
			counts[token]++
		}
	}

	freqs := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		freqs = append(freqs, WordCount{Word: word, Count: count})
	}

	sort.SliceStable(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return firstSeen[freqs[i].Word] < firstSeen[freqs[j].Word]
	})

	return freqs
}

// Top truncates a frequency table to its first n entries.
func Top(freqs []WordCount, n int) []WordCount {
	if n < 0 {
		n = 0
	}
	if len(freqs) > n {
		freqs = freqs[:n]
	}
	return freqs
}

// TotalCount sums the counts of a frequency table.
func TotalCount(freqs []WordCount) int {
	total := 0
	for _, f := range freqs {
		total += f.Count
	}
	return total
}
