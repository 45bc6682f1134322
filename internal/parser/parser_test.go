package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/conorfennell/studydeck/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		expectedCards   int
		expectedIgnored int
		expectedTerm    string
		expectedDef     string
	}{
		{
			name:          "Simple pair",
			input:         "France,Paris",
			expectedCards: 1,
			expectedTerm:  "France",
			expectedDef:   "Paris",
		},
		{
			name:          "Whitespace is trimmed",
			input:         "  go ,  a language  ",
			expectedCards: 1,
			expectedTerm:  "go",
			expectedDef:   "a language",
		},
		{
			name:          "Definition keeps later commas",
			input:         "primary colors,red, blue, yellow",
			expectedCards: 1,
			expectedTerm:  "primary colors",
			expectedDef:   "red, blue, yellow",
		},
		{
			name: "Blank lines are skipped",
			input: `
a,1

b,2
`,
			expectedCards: 2,
			expectedTerm:  "a",
			expectedDef:   "1",
		},
		{
			name: "Malformed lines are counted",
			input: `a,1
no separator here
,missing term
missing definition,
b,2`,
			expectedCards:   2,
			expectedIgnored: 3,
			expectedTerm:    "a",
			expectedDef:     "1",
		},
		{
			name:          "Windows line endings",
			input:         "a,1\r\nb,2\r\n",
			expectedCards: 2,
			expectedTerm:  "a",
			expectedDef:   "1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if len(res.Cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(res.Cards))
			}
			if res.Ignored != tc.expectedIgnored {
				t.Errorf("Expected %d ignored lines, but got %d", tc.expectedIgnored, res.Ignored)
			}
			card := res.Cards[0]
			if card.Term != tc.expectedTerm {
				t.Errorf("Expected term '%s', but got '%s'", tc.expectedTerm, card.Term)
			}
			if card.Definition != tc.expectedDef {
				t.Errorf("Expected definition '%s', but got '%s'", tc.expectedDef, card.Definition)
			}
		})
	}
}

func TestParseNoCards(t *testing.T) {
	inputs := []string{"", "\n\n", "just some text", "a,\n,b"}
	for _, input := range inputs {
		_, err := Parse(strings.NewReader(input))
		if !errors.Is(err, ErrNoCards) {
			t.Errorf("%q: expected ErrNoCards, but got %v", input, err)
		}
	}
}

func TestFormat(t *testing.T) {
	cards := []domain.Card{
		{Term: "a", Definition: "1"},
		{Term: "multi\nline", Definition: "x, y\r\nz"},
	}
	var sb strings.Builder
	if err := Format(&sb, cards); err != nil {
		t.Fatalf("Format() returned an unexpected error: %v", err)
	}
	expected := "a,1\nmulti line,x, y z"
	if sb.String() != expected {
		t.Errorf("Expected %q, but got %q", expected, sb.String())
	}

	res, err := Parse(strings.NewReader(sb.String()))
	if err != nil || len(res.Cards) != 2 || res.Cards[1].Definition != "x, y z" {
		t.Errorf("Expected formatted text to parse back, but got %+v, %v", res, err)
	}

	if err := Format(&sb, nil); !errors.Is(err, ErrNoCards) {
		t.Errorf("Expected ErrNoCards for an empty deck, but got %v", err)
	}
}
