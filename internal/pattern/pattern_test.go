package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFacility(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "trailing digit joined to identifier",
			text:   "Pole 01339008.0221700 1 inspected",
			want:   "0133900802217001",
			wantOK: true,
		},
		{
			name:   "short middle block",
			text:   "01339008.022170 0",
			want:   "013390080221700",
			wantOK: true,
		},
		{
			name:   "first match wins",
			text:   "12345678.9 1 and 87654321.0 2",
			want:   "1234567891",
			wantOK: true,
		},
		{
			name:   "whitespace run between blocks",
			text:   "01339008.0221700 \t 1010",
			want:   "013390080221700" + "1010",
			wantOK: true,
		},
		{
			name: "no trailing run",
			text: "01339008.0221700",
		},
		{
			name: "seven digit prefix",
			text: "1339008.0221700 1",
		},
		{
			name: "empty text",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindFacility(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrammar_Compile(t *testing.T) {
	_, err := Grammar{Name: "bad", Expr: `(\d+`, Compose: []int{1}}.Compile()
	assert.Error(t, err)

	_, err = Grammar{Name: "no groups", Expr: `\d+`, Compose: []int{1}}.Compile()
	assert.Error(t, err)

	_, err = Grammar{Name: "empty compose", Expr: `(\d+)`}.Compile()
	assert.Error(t, err)

	m, err := Grammar{Name: "swap", Expr: `(\w+)-(\w+)`, Compose: []int{2, 1}}.Compile()
	require.NoError(t, err)
	assert.Equal(t, "swap", m.Name())

	got, ok := m.Find("left-right")
	require.True(t, ok)
	assert.Equal(t, "rightleft", got)
}

func TestSentenceSplitter_Split(t *testing.T) {
	s := NewSentenceSplitter()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "abbreviation does not end a sentence",
			text: "Per U.S. Government policy. See Section 4.2.",
			want: []string{"Per U.S. Government policy.", "See Section 4.2."},
		},
		{
			name: "question mark ends a sentence",
			text: "Is the pole leaning? Replace it.",
			want: []string{"Is the pole leaning?", "Replace it."},
		},
		{
			name: "title abbreviation",
			text: "Ask Mr. Smith today. He knows.",
			want: []string{"Ask Mr. Smith today.", "He knows."},
		},
		{
			name: "dotted abbreviation",
			text: "Use a guy, e.g. a down guy. Then test.",
			want: []string{"Use a guy, e.g. a down guy.", "Then test."},
		},
		{
			name: "no terminal punctuation",
			text: "just one run of words",
			want: []string{"just one run of words"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Split(tt.text))
		})
	}
}

func TestSentenceSplitter_NonASCII(t *testing.T) {
	s := NewSentenceSplitter()
	got := s.Split("Clearance is 3 m – café rule. Next sentence.")
	assert.Equal(t, []string{"Clearance is 3 m – café rule.", "Next sentence."}, got)
}

func TestSentenceSplitter_Matching(t *testing.T) {
	s := NewSentenceSplitter()
	text := "The crossarm is cracked. Replace the CROSSARM now. Pole is fine."

	got := s.Matching(text, "crossarm")
	assert.Equal(t, []string{"The crossarm is cracked.", "Replace the CROSSARM now."}, got)

	assert.Empty(t, s.Matching(text, "transformer"))
}

func TestFindCitations(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		want     []Citation
	}{
		{
			name:     "single family with dotted rule",
			sentence: "Violation of GO 95, Rule 31.1 noted.",
			want: []Citation{
				{Family: GO95, RuleNumber: "31.1", Sentence: "Violation of GO 95, Rule 31.1 noted."},
			},
		},
		{
			name:     "plural rules without comma",
			sentence: "See GO 128 Rules 17.2 for details.",
			want: []Citation{
				{Family: GO128, RuleNumber: "17.2", Sentence: "See GO 128 Rules 17.2 for details."},
			},
		},
		{
			name:     "both families",
			sentence: "GO 128 Rule 35 and GO 95 Rule 44.2 apply.",
			want: []Citation{
				{Family: GO95, RuleNumber: "44.2", Sentence: "GO 128 Rule 35 and GO 95 Rule 44.2 apply."},
				{Family: GO128, RuleNumber: "35", Sentence: "GO 128 Rule 35 and GO 95 Rule 44.2 apply."},
			},
		},
		{
			name:     "first citation per family",
			sentence: "GO 95 Rule 31.1 then GO 95 Rule 54.4.",
			want: []Citation{
				{Family: GO95, RuleNumber: "31.1", Sentence: "GO 95 Rule 31.1 then GO 95 Rule 54.4."},
			},
		},
		{
			name:     "trailing period is not part of the rule",
			sentence: "Covered by GO 95 Rule 31.",
			want: []Citation{
				{Family: GO95, RuleNumber: "31", Sentence: "Covered by GO 95 Rule 31."},
			},
		},
		{
			name:     "no citation",
			sentence: "Nothing regulatory here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindCitations(tt.sentence))
		})
	}
}

func TestFamily_Grammar(t *testing.T) {
	custom := Family{Name: "GO 165", Number: "165", Label: "G.O. 165"}
	cf, err := NewCitationFinder(custom)
	require.NoError(t, err)

	got := cf.Find("Per G.O. 165 Rule 4 the inspection is due.")
	require.Len(t, got, 1)
	assert.Equal(t, "4", got[0].RuleNumber)

	// the label is literal, so "GxOx 165" must not match
	assert.Empty(t, cf.Find("Per GxOx 165 Rule 4."))
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "pole, crossarm ,guy", want: []string{"pole", "crossarm", "guy"}},
		{in: "pole,,  ,guy", want: []string{"pole", "guy"}},
		{in: "pole, pole, Pole", want: []string{"pole", "Pole"}},
		{in: "", want: nil},
		{in: " , ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKeywords(tt.in))
		})
	}
}
