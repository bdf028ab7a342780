package pattern

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// SentenceBoundary matches the whitespace after a terminal period or question
// mark, unless the period closes an abbreviation such as "U.S.", "e.g." or
// "Mr.". The lookbehinds are why this is not an RE2 expression.
const SentenceBoundary = `(?<![A-Za-z0-9_]\.[A-Za-z0-9_].)(?<![A-Z][a-z]\.)(?<=\.|\?)\s`

// SentenceSplitter segments page text into sentences.
type SentenceSplitter struct {
	re *regexp2.Regexp
}

// NewSentenceSplitter compiles SentenceBoundary.
func NewSentenceSplitter() *SentenceSplitter {
	return &SentenceSplitter{re: regexp2.MustCompile(SentenceBoundary, regexp2.None)}
}

// Split cuts text at every boundary. The boundary whitespace is dropped,
// pieces are trimmed, and empty pieces are omitted.
func (s *SentenceSplitter) Split(text string) []string {
	runes := []rune(text)
	var sentences []string

	emit := func(piece []rune) {
		if p := strings.TrimSpace(string(piece)); p != "" {
			sentences = append(sentences, p)
		}
	}

	start := 0
	m, err := s.re.FindRunesMatch(runes)
	for err == nil && m != nil {
		emit(runes[start:m.Index])
		start = m.Index + m.Length
		m, err = s.re.FindNextMatch(m)
	}
	emit(runes[start:])

	return sentences
}

// Matching returns the sentences of text that contain keyword, compared
// case-insensitively, in text order.
func (s *SentenceSplitter) Matching(text, keyword string) []string {
	needle := strings.ToLower(keyword)
	var out []string
	for _, sentence := range s.Split(text) {
		if strings.Contains(strings.ToLower(sentence), needle) {
			out = append(out, sentence)
		}
	}
	return out
}
