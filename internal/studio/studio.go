// Package studio is the single entry point the user interface talks to. It
// owns the loaded deck, merges stored progress into it, grades answers and
// runs one session engine per study mode.
//
// Nothing here fails across the UI boundary because of a bad link or a
// storage problem: those are logged, and the UI gets a safe default plus a
// Status to show.
package studio

import (
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/archive"
	"github.com/conorfennell/studydeck/internal/codec"
	"github.com/conorfennell/studydeck/internal/deck"
	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/knol"
	"github.com/conorfennell/studydeck/internal/progress"
	"github.com/conorfennell/studydeck/internal/quiz"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/srs"
)

// maxReviews bounds the in-memory review log; older entries are dropped.
const maxReviews = 1000

// Status describes how LoadDeck went.
type Status int

const (
	// Loaded means the token decoded into a deck.
	Loaded Status = iota
	// NoDeck means no token was given; the empty deck is in place.
	NoDeck
	// CorruptLink means the token was unreadable; the empty deck is in place.
	CorruptLink
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case NoDeck:
		return "no deck"
	default:
		return "corrupt link"
	}
}

// Options configures a Studio. Store is required.
type Options struct {
	Store     progress.KV
	Archive   *archive.Archive
	RoundSize int
	Rand      *rand.Rand
	Clock     session.Clock
	Params    *srs.Params
	Logger    *slog.Logger
	// Changed is called when a timer moves a session on by itself.
	Changed func(mode domain.Mode)
}

// Studio holds the application state for one user.
type Studio struct {
	sessions  *progress.Sessions
	best      *progress.BestTime
	archive   *archive.Archive
	params    *srs.Params
	timers    *session.Timers
	logger    *slog.Logger
	roundSize int
	onChange  func(domain.Mode)

	mu          sync.Mutex
	rng         *rand.Rand
	quiz        *quiz.Generator
	progress    *progress.Store
	deck        domain.Deck
	token       string
	fingerprint string
	reviews     []domain.ReviewLog
	lastRound   time.Duration

	engines engines
}

// New returns a Studio holding the empty deck. A progress entry that cannot
// be read is logged and replaced by an empty one.
func New(opts Options) *Studio {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = session.SystemClock()
	}
	if opts.Params == nil {
		opts.Params = srs.DefaultParams()
	}
	if opts.Rand == nil {
		now := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(now, now>>32))
	}

	store, err := progress.Load(opts.Store)
	if err != nil {
		opts.Logger.Warn("Failed to load progress, starting empty", "error", err)
	}

	s := &Studio{
		sessions:  progress.NewSessions(opts.Store),
		best:      progress.NewBestTime(opts.Store),
		archive:   opts.Archive,
		params:    opts.Params,
		timers:    session.NewTimers(opts.Clock),
		logger:    opts.Logger,
		roundSize: opts.RoundSize,
		onChange:  opts.Changed,
		rng:       opts.Rand,
		quiz:      quiz.NewGenerator(rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))),
		progress:  store,
		deck:      deck.Empty(),
	}
	return s
}

// LoadDeck decodes a link token and makes it the current deck. An empty
// token gives the empty deck with NoDeck; an unreadable one gives the empty
// deck with CorruptLink. Any running session is stopped.
func (s *Studio) LoadDeck(token string) (domain.Deck, Status) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "#")
	if token == "" {
		s.install(deck.Empty(), "")
		return s.Deck(), NoDeck
	}

	d, err := codec.Decode(token)
	if err != nil {
		s.logger.Warn("Discarding unreadable deck link", "error", err)
		s.install(deck.Empty(), "")
		return s.Deck(), CorruptLink
	}
	s.install(d, token)
	return s.Deck(), Loaded
}

// CreateDeck replaces the current deck with a new one and returns its share
// token. The deck is archived when an archive is configured.
func (s *Studio) CreateDeck(title string, cards []domain.Card, settings domain.Settings) (string, error) {
	d := deck.Normalize(domain.Deck{Title: title, Cards: cards, Settings: settings})
	token, err := codec.Encode(d)
	if err != nil {
		return "", err
	}
	s.install(d, token)
	s.record(d, token)
	return token, nil
}

// SaveDeckSettings applies new settings to the current deck and returns the
// updated share token. Changing the order or the answer direction discards
// every session in progress, stored ones included.
func (s *Studio) SaveDeckSettings(settings domain.Settings) (string, error) {
	return s.edit(func(d *domain.Deck) { d.Settings = settings })
}

// RenameDeck sets the title of the current deck and returns the updated
// share token. A blank title becomes "Untitled Deck". The token changes with
// the title, so sessions in progress are discarded as for settings.
func (s *Studio) RenameDeck(title string) (string, error) {
	return s.edit(func(d *domain.Deck) { d.Title = strings.TrimSpace(title) })
}

// edit re-encodes the current deck after change and archives it. The deck
// is only reinstalled when the title or settings actually moved.
func (s *Studio) edit(change func(d *domain.Deck)) (string, error) {
	s.mu.Lock()
	d := s.deck
	change(&d)
	d = deck.Normalize(d)
	changed := d.Title != s.deck.Title || d.Settings != s.deck.Settings
	s.mu.Unlock()

	token, err := codec.Encode(d)
	if err != nil {
		return "", err
	}
	if changed {
		s.discardSessions()
		s.install(d, token)
	}
	s.record(d, token)
	return token, nil
}

// ShareToken is the token of the current deck, empty when none is loaded.
func (s *Studio) ShareToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Deck returns the current deck with stored progress merged in.
func (s *Studio) Deck() domain.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deck
	d.Cards = append([]domain.Card(nil), s.deck.Cards...)
	return d
}

// MergedCards returns d's cards with stored progress applied.
func (s *Studio) MergedCards(d domain.Deck) []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Merge(d.Cards)
}

// GradeAnswer schedules a card and writes its progress through to storage.
// A failed write is logged; the graded card is returned either way.
func (s *Studio) GradeAnswer(card domain.Card, correct bool) domain.Card {
	graded := s.params.Grade(card, correct, s.timers.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := lo.IndexOf(lo.Map(s.deck.Cards, cardID), card.ID); i >= 0 {
		s.deck.Cards[i].MasteryScore = graded.MasteryScore
		s.deck.Cards[i].LastReviewedAt = graded.LastReviewedAt
		s.deck.Cards[i].NextDueAt = graded.NextDueAt
	}
	s.reviews = append(s.reviews, domain.ReviewLog{CardID: card.ID, Timestamp: graded.LastReviewedAt, Correct: correct})
	if len(s.reviews) > maxReviews {
		s.reviews = append([]domain.ReviewLog(nil), s.reviews[len(s.reviews)-maxReviews:]...)
	}
	if err := s.progress.Save(graded); err != nil {
		s.logger.Warn("Failed to save progress", "card", card.ID, "error", err)
	}
	return graded
}

// NextQuizOptions returns the multiple-choice options for card drawn from
// the current deck.
func (s *Studio) NextQuizOptions(card domain.Card) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Options(card, s.deck.Cards, s.deck.Settings.AnswerField())
}

// Reviews returns the answers graded since the Studio was created, newest
// last, up to the most recent thousand.
func (s *Studio) Reviews() []domain.ReviewLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReviewLog(nil), s.reviews...)
}

// Stats summarises the current deck at now.
type Stats struct {
	Total    int
	Reviewed int
	Due      int
	Mastered int
}

// Stats counts the deck's cards by review state.
func (s *Studio) Stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := s.deck.Cards
	return Stats{
		Total:    len(cards),
		Reviewed: lo.CountBy(cards, func(c domain.Card) bool { return !c.LastReviewedAt.IsZero() }),
		Due:      srs.DueCount(cards, now),
		Mastered: lo.CountBy(cards, func(c domain.Card) bool { return c.MasteryScore == domain.MaxMasteryScore }),
	}
}

// NextDue returns the card most in need of review.
func (s *Studio) NextDue(now time.Time) (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return srs.NextDue(s.deck.Cards, now)
}

// BestTime returns the fastest Match round on record.
func (s *Studio) BestTime() (time.Duration, bool) {
	best, ok, err := s.best.Load()
	if err != nil {
		s.logger.Warn("Failed to read best time", "error", err)
	}
	return best, ok
}

// LastRoundTime is the duration of the most recently cleared Match round.
func (s *Studio) LastRoundTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRound
}

// Close stops every session and pending timer.
func (s *Studio) Close() {
	s.stopSessions()
}

// install makes d the current deck: ids are derived from the token and
// stored progress is merged in.
func (s *Studio) install(d domain.Deck, token string) {
	s.stopSessions()

	fp := ""
	if token != "" {
		fp = knol.Fingerprint(token)
	}
	cards := make([]domain.Card, len(d.Cards))
	for i, c := range d.Cards {
		cards[i] = domain.Card{ID: knol.CardID(fp, i), Term: c.Term, Definition: c.Definition}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d.Cards = s.progress.Merge(cards)
	s.deck = d
	s.token = token
	s.fingerprint = fp
}

func (s *Studio) record(d domain.Deck, token string) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.Record(d, token); err != nil {
		s.logger.Warn("Failed to archive deck", "title", d.Title, "error", err)
	}
}

func cardID(c domain.Card, _ int) string {
	return c.ID
}
