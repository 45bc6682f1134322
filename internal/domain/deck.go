package domain

// UntitledDeck is the title given to decks without one.
const UntitledDeck = "Untitled Deck"

// Settings controls study order and answer direction.
type Settings struct {
	ShuffleEnabled bool
	TermShownFirst bool
}

// DefaultSettings returns the settings used when a deck carries none.
func DefaultSettings() Settings {
	return Settings{ShuffleEnabled: false, TermShownFirst: true}
}

// PromptField is the side shown as the question.
func (s Settings) PromptField() Field {
	if s.TermShownFirst {
		return TermField
	}
	return DefinitionField
}

// AnswerField is the side the learner has to produce.
func (s Settings) AnswerField() Field {
	if s.TermShownFirst {
		return DefinitionField
	}
	return TermField
}

// Deck is an ordered set of cards with its study settings.
type Deck struct {
	Title    string
	Cards    []Card
	Settings Settings
}

// Mode is a study mode.
type Mode string

const (
	ModeFlashcards Mode = "flashcards"
	ModeLearn      Mode = "learn"
	ModeType       Mode = "type"
	ModeMatch      Mode = "match"
)

// Modes lists every study mode in display order.
var Modes = []Mode{ModeFlashcards, ModeLearn, ModeType, ModeMatch}

// MinCards is the smallest deck a mode can run on.
func (m Mode) MinCards() int {
	switch m {
	case ModeLearn:
		return 4
	case ModeMatch:
		return 2
	default:
		return 1
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeFlashcards, ModeLearn, ModeType, ModeMatch:
		return true
	}
	return false
}
