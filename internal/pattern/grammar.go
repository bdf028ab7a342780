// Package pattern holds the text grammars the pipeline matches against page
// text: facility identifiers, regulatory rule citations, and keyword-bearing
// sentences.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Grammar is a matching rule expressed as data. Expr is an RE2 expression and
// Compose lists the capture groups concatenated, without separator, to form
// the extracted value.
type Grammar struct {
	Name    string `json:"name" yaml:"name"`
	Expr    string `json:"expr" yaml:"expr"`
	Compose []int  `json:"compose" yaml:"compose"`
}

// Matcher is a compiled Grammar.
type Matcher struct {
	grammar Grammar
	re      *regexp.Regexp
}

// Compile validates the grammar and compiles its expression.
func (g Grammar) Compile() (*Matcher, error) {
	re, err := regexp.Compile(g.Expr)
	if err != nil {
		return nil, fmt.Errorf("grammar %q: %w", g.Name, err)
	}
	if len(g.Compose) == 0 {
		return nil, fmt.Errorf("grammar %q: no capture groups to compose", g.Name)
	}
	for _, idx := range g.Compose {
		if idx < 1 || idx > re.NumSubexp() {
			return nil, fmt.Errorf("grammar %q: capture group %d out of range (expression has %d)", g.Name, idx, re.NumSubexp())
		}
	}
	return &Matcher{grammar: g, re: re}, nil
}

// MustCompile is like Compile but panics on an invalid grammar. It is meant
// for package-level grammars.
func (g Grammar) MustCompile() *Matcher {
	m, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the grammar name.
func (m *Matcher) Name() string {
	return m.grammar.Name
}

// Find returns the composed value of the first match in text.
func (m *Matcher) Find(text string) (string, bool) {
	groups := m.re.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	var sb strings.Builder
	for _, idx := range m.grammar.Compose {
		sb.WriteString(groups[idx])
	}
	return sb.String(), true
}
