// Package match links lost reports to found reports by heuristic similarity.
package match

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/erazemk/reconnect/internal/model"
)

// Sub-score weights. Category is the strongest signal, time the weakest.
const (
	CategoryWeight       = 40
	KeywordWeight        = 30
	LocationWeight       = 20
	LocationPartialScore = 10
	TimeWeight           = 10
	TimePartialScore     = 5
)

var stopWords = map[string]bool{
	"the": true, "and": true, "with": true, "was": true,
	"has": true, "have": true, "are": true, "for": true,
}

// Tokenize splits text into a set of lowercase alphanumeric words longer than
// two characters, without stop-words.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	if text == "" {
		return tokens
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 || stopWords[w] {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

// CategoryScore compares categories as exact strings.
func CategoryScore(a, b *model.Item) int {
	if a.Category == b.Category {
		return CategoryWeight
	}
	return 0
}

// KeywordScore measures word overlap of name and description, relative to the
// larger of the two token sets.
func KeywordScore(a, b *model.Item) int {
	tokA := Tokenize(a.Name + " " + a.Description)
	tokB := Tokenize(b.Name + " " + b.Description)
	if len(tokA) == 0 || len(tokB) == 0 {
		return 0
	}

	overlap := 0
	for t := range tokA {
		if _, ok := tokB[t]; ok {
			overlap++
		}
	}
	return int(math.Round(float64(overlap) / float64(max(len(tokA), len(tokB))) * KeywordWeight))
}

// LocationScore compares where an item was lost with where one was found.
// Sharing only the first word (same building) earns a partial score.
func LocationScore(lost, found *model.Item) int {
	lostLoc := strings.ToLower(lost.Location)
	foundLoc := strings.ToLower(found.Location)
	if lostLoc == "" || foundLoc == "" {
		return 0
	}
	if lostLoc == foundLoc {
		return LocationWeight
	}
	if firstWord(lostLoc) == firstWord(foundLoc) {
		return LocationPartialScore
	}
	return 0
}

// firstWord returns s up to its first whitespace character. Leading
// whitespace yields an empty word.
func firstWord(s string) string {
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i]
	}
	return s
}

// TimeScore rewards reports filed close together.
func TimeScore(lost, found *model.Item) int {
	diff := lost.ReportedAt.Sub(found.ReportedAt)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 24*time.Hour:
		return TimeWeight
	case diff <= 72*time.Hour:
		return TimePartialScore
	default:
		return 0
	}
}

// Score returns the 0-100 compatibility of a lost and a found report.
func Score(lost, found *model.Item) int {
	return CategoryScore(lost, found) +
		KeywordScore(lost, found) +
		LocationScore(lost, found) +
		TimeScore(lost, found)
}
