package textanalysis

import (
	"cmp"
	"slices"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

const defaultMinTokenLength = 3

type FrequencyExtractor struct {
	Limit          int
	MinTokenLength int
}

func NewFrequencyExtractor(limit, minTokenLength int) *FrequencyExtractor {
	if limit <= 0 {
		limit = domain.MaxWordFrequencyEntries
	}
	if minTokenLength <= 0 {
		minTokenLength = defaultMinTokenLength
	}
	return &FrequencyExtractor{
		Limit:          limit,
		MinTokenLength: minTokenLength,
	}
}

// Extract ranks tokens by descending count. Equal counts keep the order in
// which the tokens first appeared in text.
func (e *FrequencyExtractor) Extract(text string) domain.WordFrequency {
	out := domain.WordFrequency{}
	if text == "" {
		return out
	}

	// cases.Caser is stateful, one per call.
	folded := cases.Fold().String(text)

	counts := make(map[string]int)
	firstSeen := make([]string, 0, 64)
	for _, token := range Tokenize(folded, e.MinTokenLength) {
		if counts[token] == 0 {
			firstSeen = append(firstSeen, token)
		}
		counts[token]++
	}

	out = make(domain.WordFrequency, 0, len(firstSeen))
	for _, token := range firstSeen {
		out = append(out, domain.WordCount{Word: token, Count: counts[token]})
	}
	slices.SortStableFunc(out, func(a, b domain.WordCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if len(out) > e.Limit {
		out = out[:e.Limit]
	}
	return out
}

// Tokenize returns maximal runs of Latin or Cyrillic letters that are at least
// minLength runes long. Every other rune separates tokens.
func Tokenize(text string, minLength int) []string {
	var (
		tokens []string
		runes  []rune
	)
	flush := func() {
		if len(runes) >= minLength {
			tokens = append(tokens, string(runes))
		}
		runes = runes[:0]
	}

	for _, r := range text {
		if isWordRune(r) {
			runes = append(runes, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) && unicode.In(r, unicode.Latin, unicode.Cyrillic)
}
