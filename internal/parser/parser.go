// Package parser reads and writes the plain-text deck format: one card per
// line, term and definition separated by the first comma.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/studydeck/internal/domain"
)

const separator = ","

// ErrNoCards is returned when the input holds no usable card.
var ErrNoCards = errors.New("no valid cards found")

// Result is the outcome of parsing pasted text.
type Result struct {
	Cards []domain.Card
	// Ignored counts non-blank lines that did not yield a card.
	Ignored int
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Everything after the
// first comma is the definition, so definitions may contain commas. Lines
// without a comma, or with an empty side, are counted as ignored.
func Parse(r io.Reader) (Result, error) {
	scanner := bufio.NewScanner(r)
	var res Result

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		term, definition, found := strings.Cut(line, separator)
		term = strings.TrimSpace(term)
		definition = strings.TrimSpace(definition)
		if !found || term == "" || definition == "" {
			res.Ignored++
			continue
		}
		res.Cards = append(res.Cards, domain.Card{Term: term, Definition: definition})
	}

	if err := scanner.Err(); err != nil {
		return Result{}, err
	}
	if len(res.Cards) == 0 {
		return res, fmt.Errorf("%w (%d lines ignored)", ErrNoCards, res.Ignored)
	}
	return res, nil
}

// Format writes cards in the form Parse reads. Line breaks inside a card are
// flattened to spaces.
func Format(w io.Writer, cards []domain.Card) error {
	if len(cards) == 0 {
		return ErrNoCards
	}
	flatten := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	bw := bufio.NewWriter(w)
	for i, c := range cards {
		if i > 0 {
			bw.WriteString("\n")
		}
		bw.WriteString(flatten.Replace(c.Term))
		bw.WriteString(separator)
		bw.WriteString(flatten.Replace(c.Definition))
	}
	return bw.Flush()
}
