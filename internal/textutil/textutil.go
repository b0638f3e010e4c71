// Package textutil holds the lexical heuristics shared by the stages:
// tokenization with stopwords, name normalization, term similarity and
// keyword extraction. All functions are pure and deterministic.
package textutil

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords contains common English words excluded from matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "our": true, "their": true, "more": true, "most": true,
	"very": true, "also": true, "all": true, "any": true, "each": true,
}

// Words splits text into lowercase letter/digit runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stem strips a plural suffix so "restaurants" matches "restaurant".
func stem(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:len(w)-1]
	default:
		return w
	}
}

// Tokenize splits text into unique, stemmed, lowercase non-stopword tokens
// in order of first appearance.
func Tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range Words(text) {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		w = stem(w)
		if seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// NormalizeName lowercases, trims and collapses inner whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity scores two short terms in [0,1]: 1 for a case-insensitive exact
// match, otherwise the Jaccard index of their token sets.
func Similarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ta, tb := Tokenize(na), Tokenize(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	inter := 0
	for _, t := range tb {
		if set[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// Containment returns the fraction of query tokens present in doc tokens.
func Containment(query, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	set := make(map[string]bool, len(doc))
	for _, t := range doc {
		set[t] = true
	}
	n := 0
	for _, t := range query {
		if set[t] {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

// Keywords returns up to n tokens of text ranked by frequency; ties keep the
// order of first appearance.
func Keywords(text string, n int) []string {
	counts := map[string]int{}
	first := map[string]int{}
	for _, w := range Words(text) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		w = stem(w)
		if _, ok := first[w]; !ok {
			first[w] = len(first)
		}
		counts[w]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return first[keys[i]] < first[keys[j]]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Slug turns a phrase into a lowercase hyphen-joined tag ("Busy Parents" -> "busy-parents").
func Slug(s string) string {
	return strings.Join(Words(s), "-")
}
