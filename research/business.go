package research

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Business is the profile parsed from a free-text description of the form
// "name, industry, location, description, goals...".
type Business struct {
	Name        string   `json:"name,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description"`
	Goals       []string `json:"goals,omitempty"`
	Raw         string   `json:"raw"`
}

// ParseBusiness splits a comma separated description. The input is kept
// whole as the description unless it has at least four parts and the first
// three read as labels: short phrases, a capitalized name and location, no
// leading pronoun or conjunction. Prose that merely contains commas
// ("We sell shoes, socks, hats, and belts") stays unsplit.
func ParseBusiness(raw string) Business {
	raw = strings.TrimSpace(raw)
	b := Business{Raw: raw, Description: raw}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 4 {
		return b
	}
	if !isLabel(parts[0], true) || !isLabel(parts[1], false) || !isLabel(parts[2], true) {
		return b
	}
	b.Name, b.Industry, b.Location, b.Description = parts[0], parts[1], parts[2], parts[3]
	if len(parts) > 4 {
		b.Goals = append([]string(nil), parts[4:]...)
	}
	return b
}

// maxLabelWords bounds the length of a name, industry or location.
const maxLabelWords = 4

// proseOpeners start sentences and list continuations, not labels.
var proseOpeners = map[string]bool{
	"we": true, "i": true, "our": true, "my": true, "us": true,
	"and": true, "or": true, "&": true, "plus": true, "also": true,
}

func isLabel(part string, proper bool) bool {
	words := strings.Fields(part)
	if len(words) == 0 || len(words) > maxLabelWords {
		return false
	}
	if proseOpeners[strings.ToLower(words[0])] {
		return false
	}
	if proper {
		r, _ := utf8.DecodeRuneInString(part)
		return unicode.IsUpper(r) || unicode.IsDigit(r)
	}
	return true
}

// Subject is the phrase used in search queries.
func (b Business) Subject() string {
	switch {
	case b.Industry != "" && b.Description != "":
		return b.Description + " " + b.Industry
	case b.Industry != "":
		return b.Industry
	default:
		return b.Description
	}
}

// Market is the location qualifier used in search queries.
func (b Business) Market() string {
	if b.Location == "" {
		return ""
	}
	return " in " + b.Location
}
