package session

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/domain"
)

// TileState is the display state of a Match tile.
type TileState int

const (
	TileIdle TileState = iota
	TileSelected
	TileCorrect
	TileIncorrect
)

// Tile is one side of a card on the Match board.
type Tile struct {
	CardID string
	Text   string
	Side   domain.Field
	State  TileState
}

// Board is a snapshot of the current Match round.
type Board struct {
	Terms       []Tile
	Definitions []Tile
	Round       int
	Rounds      int
	Elapsed     time.Duration
	Checking    bool
	// Cleared is set between a finished round and the next one.
	Cleared bool
	// Remaining counts cards not yet paired, across all rounds.
	Remaining int
}

// PairResult is the outcome of a Select call.
type PairResult int

const (
	// Picked means a tile was selected or deselected without a pairing.
	Picked PairResult = iota
	Matched
	Mismatched
	// Ignored means the pick was dropped: the board was locked or the tile
	// already paired.
	Ignored
)

// Match pairs terms with definitions in timed rounds of Config.RoundSize
// cards. Paired cards leave the session for good.
type Match struct {
	mu sync.Mutex
	q  queue

	round     int
	terms     []Tile
	defs      []Tile
	batch     int
	matched   int
	selected  map[domain.Field]int
	checking  bool
	cleared   bool
	startedAt time.Time
	elapsed   time.Duration
}

// NewMatch returns an idle Match engine.
func NewMatch(cfg Config) *Match {
	cfg = cfg.withDefaults(domain.ModeMatch)
	return &Match{q: queue{mode: domain.ModeMatch, cfg: cfg}}
}

// RoundSizes splits n cards into rounds of size cards. A single card left
// over for a last round joins the round before it.
func RoundSizes(n, size int) []int {
	if size < MinRoundSize {
		size = DefaultRoundSize
	}
	var sizes []int
	for n > 0 {
		k := min(size, n)
		if n-k == 1 {
			k++
		}
		sizes = append(sizes, k)
		n -= k
	}
	return sizes
}

// Start begins a fresh session over cards and deals the first round.
func (m *Match) Start(cards []domain.Card) error {
	if len(cards) < domain.ModeMatch.MinCards() {
		return domain.ErrInsufficientCards
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	m.q.reset(cards)
	m.round = 0
	m.dealLocked()
	m.q.persist()
	return nil
}

// Resume deals the remaining pool of a persisted session.
func (m *Match) Resume(cards []domain.Card, ids []string) error {
	if len(cards) < domain.ModeMatch.MinCards() {
		return domain.ErrInsufficientCards
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
	if err := m.q.restore(cards, ids); err != nil {
		return err
	}
	m.round = 0
	m.dealLocked()
	return nil
}

// Board returns the current round.
func (m *Match) Board() (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.activeLocked(); err != nil {
		return Board{}, err
	}
	elapsed := m.elapsed
	if !m.cleared {
		elapsed = m.q.cfg.Timers.Now().Sub(m.startedAt)
	}
	return Board{
		Terms:       append([]Tile(nil), m.terms...),
		Definitions: append([]Tile(nil), m.defs...),
		Round:       m.round,
		Rounds:      m.round - 1 + len(RoundSizes(len(m.q.order)+m.matched, m.q.cfg.RoundSize)),
		Elapsed:     elapsed,
		Checking:    m.checking,
		Cleared:     m.cleared,
		Remaining:   len(m.q.order),
	}, nil
}

// Select picks the tile at index on one side of the board. Picking the
// selected tile again deselects it; picking another tile on the same side
// moves the selection. Once both sides have a pick the pair is graded.
func (m *Match) Select(side domain.Field, index int) (PairResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.activeLocked(); err != nil {
		return Ignored, err
	}
	tiles := m.side(side)
	if index < 0 || index >= len(tiles) {
		return Ignored, domain.ErrUnknownCard
	}
	if m.checking || m.cleared {
		return Ignored, domain.ErrBusy
	}
	if tiles[index].State == TileCorrect {
		return Ignored, nil
	}

	if prev, ok := m.selected[side]; ok {
		tiles[prev].State = TileIdle
		delete(m.selected, side)
		if prev == index {
			return Picked, nil
		}
	}
	tiles[index].State = TileSelected
	m.selected[side] = index

	ti, okTerm := m.selected[domain.TermField]
	di, okDef := m.selected[domain.DefinitionField]
	if !okTerm || !okDef {
		return Picked, nil
	}
	clear(m.selected)
	return m.pairLocked(ti, di), nil
}

func (m *Match) pairLocked(ti, di int) PairResult {
	term, def := &m.terms[ti], &m.defs[di]
	pos := m.position(term.CardID)

	if term.CardID != def.CardID {
		term.State = TileIncorrect
		def.State = TileIncorrect
		m.checking = true
		m.q.grade(pos, false)
		m.q.cfg.Timers.After(m.q.timerKey("cooldown"), CooldownDelay, func() {
			m.unlock(ti, di)
		})
		return Mismatched
	}

	term.State = TileCorrect
	def.State = TileCorrect
	m.matched++
	m.q.remove(pos)
	m.q.grade(pos, true)

	if m.matched == m.batch {
		m.clearRoundLocked()
	}
	m.q.persist()
	return Matched
}

func (m *Match) clearRoundLocked() {
	m.cleared = true
	m.elapsed = m.q.cfg.Timers.Now().Sub(m.startedAt)
	m.q.cfg.Timers.Cancel(m.q.timerKey("tick"))
	if m.q.cfg.Hooks.RoundCleared != nil {
		m.q.cfg.Hooks.RoundCleared(m.elapsed)
	}
	if len(m.q.order) == 0 {
		m.q.complete = true
		return
	}
	m.q.cfg.Timers.After(m.q.timerKey("round"), RoundDelay, m.nextRound)
}

func (m *Match) unlock(ti, di int) {
	m.mu.Lock()
	if !m.q.started || !m.checking {
		m.mu.Unlock()
		return
	}
	m.terms[ti].State = TileIdle
	m.defs[di].State = TileIdle
	m.checking = false
	m.mu.Unlock()
	m.q.changed()
}

func (m *Match) nextRound() {
	m.mu.Lock()
	if !m.q.started || m.q.complete || !m.cleared {
		m.mu.Unlock()
		return
	}
	m.dealLocked()
	m.mu.Unlock()
	m.q.changed()
}

// dealLocked lays out the next round from the head of the pool.
func (m *Match) dealLocked() {
	sizes := RoundSizes(len(m.q.order), m.q.cfg.RoundSize)
	m.batch = sizes[0]
	m.matched = 0
	m.round++
	m.checking = false
	m.cleared = false
	m.elapsed = 0
	m.selected = map[domain.Field]int{}

	cards := lo.Map(m.q.order[:m.batch], func(pos int, _ int) domain.Card { return m.q.cards[pos] })
	m.terms = m.tiles(cards, domain.TermField)
	m.defs = m.tiles(cards, domain.DefinitionField)

	m.startedAt = m.q.cfg.Timers.Now()
	m.q.cfg.Timers.Every(m.q.timerKey("tick"), TickInterval, m.q.changed)
}

func (m *Match) tiles(cards []domain.Card, side domain.Field) []Tile {
	tiles := lo.Map(cards, func(c domain.Card, _ int) Tile {
		return Tile{CardID: c.ID, Text: c.Text(side), Side: side}
	})
	m.q.cfg.Rand.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	return tiles
}

func (m *Match) side(f domain.Field) []Tile {
	if f == domain.TermField {
		return m.terms
	}
	return m.defs
}

func (m *Match) position(id string) int {
	return lo.IndexOf(lo.Map(m.q.cards, func(c domain.Card, _ int) string { return c.ID }), id)
}

// Done reports whether every card has been paired.
func (m *Match) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.complete
}

// State returns the persisted form of the unpaired pool.
func (m *Match) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.state()
}

// Stop cancels the clock and any pending transition.
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked()
	m.q.started = false
}

func (m *Match) activeLocked() error {
	if !m.q.started {
		return domain.ErrNoSession
	}
	if m.q.complete {
		return domain.ErrSessionComplete
	}
	return nil
}

func (m *Match) cancelLocked() {
	m.q.cfg.Timers.CancelSession(m.q.cfg.ID)
}
