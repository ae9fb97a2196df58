package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const MaxWordFrequencyEntries = 50

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequency is a ranked token -> count mapping. Entry order is the ranking
// order and is preserved on the wire: it encodes as a JSON object whose keys
// appear in rank order.
type WordFrequency []WordCount

func (f WordFrequency) Clone() WordFrequency {
	if f == nil {
		return nil
	}
	out := make(WordFrequency, len(f))
	copy(out, f)
	return out
}

func (f WordFrequency) Map() map[string]int {
	out := make(map[string]int, len(f))
	for _, wc := range f {
		out[wc.Word] = wc.Count
	}
	return out
}

func (f WordFrequency) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, wc := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(wc.Word)
		if err != nil {
			return nil, fmt.Errorf("marshal word: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", wc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *WordFrequency) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode word frequency: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode word frequency: expected object, got %v", tok)
	}

	out := WordFrequency{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode word frequency key: %w", err)
		}
		word, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode word frequency: unexpected key %v", keyTok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("decode word frequency count for %q: %w", word, err)
		}
		out = append(out, WordCount{Word: word, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode word frequency: %w", err)
	}
	*f = out
	return nil
}
