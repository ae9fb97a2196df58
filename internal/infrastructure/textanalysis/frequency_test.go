package textanalysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

func TestExtractRanksByDescendingCount(t *testing.T) {
	extractor := NewFrequencyExtractor(0, 0)

	got := extractor.Extract("cat dog cat cat dog bird")
	want := domain.WordFrequency{
		{Word: "cat", Count: 3},
		{Word: "dog", Count: 2},
		{Word: "bird", Count: 1},
	}
	assertFrequency(t, got, want)
}

func TestExtractBreaksTiesByFirstSeenOrder(t *testing.T) {
	extractor := NewFrequencyExtractor(0, 0)

	got := extractor.Extract("zulu alpha mike alpha zulu mike echo")
	want := domain.WordFrequency{
		{Word: "zulu", Count: 2},
		{Word: "alpha", Count: 2},
		{Word: "mike", Count: 2},
		{Word: "echo", Count: 1},
	}
	assertFrequency(t, got, want)
}

func TestExtractCaseFoldsAndSplitsOnNonLetters(t *testing.T) {
	extractor := NewFrequencyExtractor(0, 0)

	got := extractor.Extract("Hello, HELLO! hello_world 42abc a1b2 Привет привет, мир")
	want := domain.WordFrequency{
		{Word: "hello", Count: 3},
		{Word: "привет", Count: 2},
		{Word: "world", Count: 1},
		{Word: "abc", Count: 1},
		{Word: "мир", Count: 1},
	}
	assertFrequency(t, got, want)
}

func TestExtractIgnoresShortTokensAndOtherScripts(t *testing.T) {
	extractor := NewFrequencyExtractor(0, 0)

	got := extractor.Extract("an ox is ok 東京 αβγδ ёжик")
	want := domain.WordFrequency{{Word: "ёжик", Count: 1}}
	assertFrequency(t, got, want)
}

func TestExtractKeepsTopFifty(t *testing.T) {
	extractor := NewFrequencyExtractor(0, 0)

	var b strings.Builder
	for i := 0; i < 80; i++ {
		word := fmt.Sprintf("word%sx", strings.Repeat("q", i+1))
		for j := 0; j <= i%3; j++ {
			b.WriteString(word)
			b.WriteByte(' ')
		}
	}

	got := extractor.Extract(b.String())
	if len(got) != domain.MaxWordFrequencyEntries {
		t.Fatalf("expected %d entries, got %d", domain.MaxWordFrequencyEntries, len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Count < got[i].Count {
			t.Fatalf("ranking not descending at %d: %+v", i, got[i-1:i+1])
		}
	}
}

func TestExtractEmptyInput(t *testing.T) {
	extractor := NewFrequencyExtractor(0, 0)

	if got := extractor.Extract(""); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
	if got := extractor.Extract("12 34 -- !!"); len(got) != 0 {
		t.Fatalf("expected empty result for letterless text, got %+v", got)
	}
}

func assertFrequency(t *testing.T, got, want domain.WordFrequency) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v (all: %+v)", i, want[i], got[i], got)
		}
	}
}
