package textanalysis

import (
	"unicode"
	"unicode/utf8"
)

type ContentDecoder struct{}

func NewContentDecoder() ContentDecoder {
	return ContentDecoder{}
}

func (ContentDecoder) DecodeText(raw []byte) (string, bool) {
	return DecodeText(raw)
}

// DecodeText accepts UTF-8 content without control characters other than
// carriage return, line feed and tab.
func DecodeText(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	text := string(raw)
	for _, r := range text {
		switch r {
		case '\r', '\n', '\t':
			continue
		}
		if unicode.IsControl(r) {
			return "", false
		}
	}
	return text, true
}
