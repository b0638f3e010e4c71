package positioning

import (
	"math"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/textutil"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/research"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/scoring"
)

// DefaultConflictThreshold is the similarity at or above which a word-to-own
// collides with a competitor's owned word.
const DefaultConflictThreshold = 0.8

// genericWords are terms every business claims; owning them is not clear.
var genericWords = map[string]bool{
	"quality": true, "best": true, "great": true, "good": true, "service": true,
	"value": true, "solution": true, "solutions": true, "innovative": true,
	"excellence": true, "leading": true, "premium": true, "trusted": true,
}

// Clarity rewards short, specific words-to-own: one word scores 1, each extra
// word costs 0.15, and a generic term costs 0.3.
func Clarity(word string) float64 {
	words := textutil.Words(word)
	if len(words) == 0 {
		return 0
	}
	score := 1 - 0.15*float64(len(words)-1)
	for _, w := range words {
		if genericWords[w] {
			score -= 0.3
			break
		}
	}
	return scoring.Clamp01(score)
}

// Conflicts returns the ladder entries whose owned word is at least threshold
// similar to word.
func Conflicts(word string, ladder []research.LadderEntry, threshold float64) []Conflict {
	var out []Conflict
	for _, e := range ladder {
		sim := textutil.Similarity(word, e.WordOwned)
		if sim >= threshold {
			out = append(out, Conflict{
				Competitor: e.Competitor,
				WordOwned:  e.WordOwned,
				Strength:   e.Strength,
				Similarity: sim,
				Source:     ConflictWordToOwn,
			})
		}
	}
	return out
}

// DifferentiationConflicts returns the ladder entries whose owned word is
// claimed by the differentiation text: the share of the owned word's tokens
// found in text is at least threshold.
func DifferentiationConflicts(text string, ladder []research.LadderEntry, threshold float64) []Conflict {
	doc := textutil.Tokenize(text)
	var out []Conflict
	for _, e := range ladder {
		score := textutil.Containment(textutil.Tokenize(e.WordOwned), doc)
		if score > 0 && score >= threshold {
			out = append(out, Conflict{
				Competitor: e.Competitor,
				WordOwned:  e.WordOwned,
				Strength:   e.Strength,
				Similarity: score,
				Source:     ConflictDifferentiation,
			})
		}
	}
	return out
}

// Uniqueness is one minus the highest similarity to any owned word.
func Uniqueness(word string, ladder []research.LadderEntry) float64 {
	maxSim := 0.0
	for _, e := range ladder {
		maxSim = math.Max(maxSim, textutil.Similarity(word, e.WordOwned))
	}
	return scoring.Clamp01(1 - maxSim)
}

// Ownable weighs evidence support (0.5), a stated sacrifice (0.3) and a
// remarkable element (0.2).
func Ownable(supportRatio float64, sacrifices int, remarkable bool) float64 {
	s := 0.5 * supportRatio
	if sacrifices > 0 {
		s += 0.3
	}
	if remarkable {
		s += 0.2
	}
	return scoring.Clamp01(s)
}

// Defensibility grows with evidence support (0.4), uniqueness (0.3) and the
// number of sacrifices up to three (0.3); easy-to-copy positions score low.
func Defensibility(supportRatio, uniqueness float64, sacrifices int) float64 {
	return scoring.Clamp01(0.4*supportRatio + 0.3*uniqueness + 0.3*math.Min(1, float64(sacrifices)/3))
}
