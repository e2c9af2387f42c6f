package retrieval

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"legalrecords-assistant/internal/model"
)

const minKeywordLength = 3

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`de la el en y a los las un una unos unas al del lo para por con
		son como que se su sus este esta estos estas`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// Words lower-cases query and splits it into letter/digit runs.
func Words(query string) []string {
	return wordPattern.FindAllString(strings.ToLower(query), -1)
}

// ExtractKeywords keeps words of at least three characters that are not
// stopwords, in first-occurrence order without repeats.
func ExtractKeywords(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range Words(query) {
		if utf8.RuneCountInString(w) < minKeywordLength {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// ExtractRecordNumbers returns every record number mentioned in query,
// upper-cased and without repeats.
func ExtractRecordNumbers(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range model.RecordNumberPattern.FindAllString(query, -1) {
		n := strings.ToUpper(m)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
