package pattern

import (
	"regexp"
	"strings"
)

// Family is a family of regulatory rules cited as "<Label> Rule <number>".
type Family struct {
	Name   string `json:"name" yaml:"name"`
	Number string `json:"number" yaml:"number"`
	Label  string `json:"label" yaml:"label"`
}

// Known rule families.
var (
	GO95  = Family{Name: "GO 95", Number: "95", Label: "GO 95"}
	GO128 = Family{Name: "GO 128", Number: "128", Label: "GO 128"}
)

// Families lists the known rule families in report order.
var Families = []Family{GO95, GO128}

// Grammar returns the citation grammar for the family. The rule number may
// contain one internal period.
func (f Family) Grammar() Grammar {
	return Grammar{
		Name:    "citation:" + strings.ToLower(strings.ReplaceAll(f.Name, " ", "")),
		Expr:    regexp.QuoteMeta(f.Label) + `,? Rules? (\d+(?:\.\d+)?)`,
		Compose: []int{1},
	}
}

// Citation is one rule reference found in a sentence.
type Citation struct {
	Family     Family `json:"family"`
	RuleNumber string `json:"rule_number"`
	Sentence   string `json:"sentence"`
}

// CitationFinder finds rule citations for a fixed set of families.
type CitationFinder struct {
	families []Family
	matchers []*Matcher
}

// NewCitationFinder compiles one grammar per family.
func NewCitationFinder(families ...Family) (*CitationFinder, error) {
	cf := &CitationFinder{families: families}
	for _, f := range families {
		m, err := f.Grammar().Compile()
		if err != nil {
			return nil, err
		}
		cf.matchers = append(cf.matchers, m)
	}
	return cf, nil
}

// Find returns at most one citation per family, in family order.
func (cf *CitationFinder) Find(sentence string) []Citation {
	var out []Citation
	for i, m := range cf.matchers {
		rule, ok := m.Find(sentence)
		if !ok {
			continue
		}
		out = append(out, Citation{Family: cf.families[i], RuleNumber: rule, Sentence: sentence})
	}
	return out
}

var defaultCitations = func() *CitationFinder {
	cf, err := NewCitationFinder(Families...)
	if err != nil {
		panic(err)
	}
	return cf
}()

// FindCitations finds citations of the known rule families.
func FindCitations(sentence string) []Citation {
	return defaultCitations.Find(sentence)
}
