// Package quiz builds multiple-choice option sets that favour distractors
// the learner is likely to confuse with the right answer.
package quiz

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/similarity"
)

// OptionCount is the size of a full option set.
const OptionCount = 4

// Generator draws option sets from a random source.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator using rng for tie-breaking and the final
// shuffle.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

type candidate struct {
	text     string
	distance int
}

// Options returns up to OptionCount distinct texts for the answer field,
// exactly one of which is the correct card's. Distractors are the texts
// closest to the answer by edit distance; candidates at equal distance are
// taken in random order. The result is shuffled. Fewer than OptionCount
// options are returned only when the pool lacks enough distinct texts.
func (g *Generator) Options(correct domain.Card, pool []domain.Card, field domain.Field) []string {
	answer := correct.Text(field)
	target := similarity.Fold(answer)

	others := lo.Filter(pool, func(c domain.Card, _ int) bool { return c.ID != correct.ID })
	candidates := lo.Map(others, func(c domain.Card, _ int) candidate {
		text := c.Text(field)
		return candidate{text: text, distance: similarity.EditDistance(similarity.Fold(text), target)}
	})
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.distance, b.distance)
	})

	options := []string{answer}
	seen := map[string]bool{answer: true}
	for _, c := range candidates {
		if len(options) == OptionCount {
			break
		}
		if seen[c.text] {
			continue
		}
		seen[c.text] = true
		options = append(options, c.text)
	}

	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// DistinctAnswers counts the distinct texts the pool offers for field.
func DistinctAnswers(pool []domain.Card, field domain.Field) int {
	return len(lo.Uniq(lo.Map(pool, func(c domain.Card, _ int) string { return c.Text(field) })))
}
