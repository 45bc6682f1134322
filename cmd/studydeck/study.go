package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/session"
	"github.com/conorfennell/studydeck/internal/similarity"
	"github.com/conorfennell/studydeck/internal/studio"
)

// study runs a line-based session on in/out until the deck is done or the
// user types "q".
func study(s *studio.Studio, mode domain.Mode, in io.Reader, out io.Writer) error {
	resumed, err := s.OpenSession(mode)
	if err != nil {
		return err
	}
	if resumed {
		fmt.Fprintln(out, "Resuming where you left off.")
	}

	scanner := bufio.NewScanner(in)
	read := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	switch mode {
	case domain.ModeFlashcards:
		err = studyFlashcards(s, read, out)
	case domain.ModeLearn, domain.ModeType:
		err = studyQuestions(s, mode, read, out)
	case domain.ModeMatch:
		err = studyMatch(s, read, out)
	}
	return err
}

func studyFlashcards(s *studio.Studio, read func() (string, bool), out io.Writer) error {
	fmt.Fprintln(out, "Enter: flip  n: next  p: previous  q: quit")
	for {
		face, err := s.Flashcard()
		if err != nil {
			return err
		}
		side := "front"
		if face.Flipped {
			side = "back"
		}
		fmt.Fprintf(out, "[%d/%d %s] %s\n", face.Position, face.Total, side, face.Text)

		line, ok := read()
		if !ok || line == "q" {
			return nil
		}
		switch line {
		case "n":
			if err := s.AdvanceSession(domain.ModeFlashcards); errors.Is(err, domain.ErrSessionComplete) {
				fmt.Fprintln(out, "That was the last card.")
			}
		case "p":
			s.PreviousCard()
		default:
			s.FlipCard()
		}
	}
}

func studyQuestions(s *studio.Studio, mode domain.Mode, read func() (string, bool), out io.Writer) error {
	if mode == domain.ModeLearn {
		fmt.Fprintln(out, "Pick 1-4.  s: skip  q: quit")
	} else {
		fmt.Fprintln(out, "Type the answer.  s: skip  !wrong / !right: override  q: quit")
	}

	for {
		q, err := s.Question(mode)
		if errors.Is(err, domain.ErrSessionComplete) {
			fmt.Fprintln(out, "Session complete!")
			printAccuracy(s, out)
			return nil
		}
		if err != nil {
			return err
		}
		if q.Answered {
			// A timer or an override left the answered question on screen.
			if err := s.AdvanceSession(mode); err != nil && !errors.Is(err, domain.ErrNotAnswered) {
				return err
			}
			continue
		}

		fmt.Fprintf(out, "\n(%d left) %s\n", q.Remaining, q.Prompt)
		for i, o := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, o)
		}

		line, ok := read()
		if !ok || line == "q" {
			return nil
		}
		if line == "s" {
			if err := s.SkipCurrent(mode); err != nil {
				fmt.Fprintf(out, "Cannot skip: %v\n", err)
			}
			continue
		}

		answer := line
		if mode == domain.ModeLearn {
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(q.Options) {
				fmt.Fprintln(out, "Pick one of the numbers shown.")
				continue
			}
			answer = q.Options[n-1]
		}

		fb, err := s.RecordAnswer(mode, answer)
		if errors.Is(err, domain.ErrEmptyAnswer) {
			continue
		}
		if err != nil {
			return err
		}
		printFeedback(out, fb)

		if !waitAfterAnswer(s, mode, fb, read, out) {
			return nil
		}
	}
}

func printFeedback(out io.Writer, fb studio.Feedback) {
	switch fb.Verdict {
	case similarity.Exact:
		fmt.Fprintln(out, "Correct!")
	case similarity.Close:
		fmt.Fprintf(out, "Close enough, counted as correct. The answer is %q. (!wrong to undo)\n", fb.Expected)
	default:
		fmt.Fprintf(out, "Not quite. The answer is %q.\n", fb.Expected)
	}
}

// waitAfterAnswer handles overrides until the user moves on. It returns
// false when input ends or the user quits.
func waitAfterAnswer(s *studio.Studio, mode domain.Mode, fb studio.Feedback, read func() (string, bool), out io.Writer) bool {
	for {
		fmt.Fprint(out, "[Enter to continue] ")
		line, ok := read()
		if !ok || line == "q" {
			return false
		}
		switch {
		case mode == domain.ModeType && line == "!wrong":
			if applied, _ := s.OverrideAnswer(false); applied {
				fmt.Fprintln(out, "Marked wrong. It will come back.")
			}
		case mode == domain.ModeType && line == "!right":
			if applied, _ := s.OverrideAnswer(true); applied {
				fmt.Fprintln(out, "Marked right.")
			}
		default:
			err := s.AdvanceSession(mode)
			if err != nil && !errors.Is(err, domain.ErrNotAnswered) && !errors.Is(err, domain.ErrSessionComplete) {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			return true
		}
	}
}

func studyMatch(s *studio.Studio, read func() (string, bool), out io.Writer) error {
	fmt.Fprintln(out, "Pair a term number with a definition letter, e.g. \"2 c\".  Enter: refresh  q: quit")
	for {
		if s.SessionDone(domain.ModeMatch) {
			fmt.Fprintf(out, "All matched! Last round: %.1fs\n", s.LastRoundTime().Seconds())
			if best, ok := s.BestTime(); ok {
				fmt.Fprintf(out, "Best round: %.1fs\n", best.Seconds())
			}
			return nil
		}
		b, err := s.Board()
		if err != nil {
			return err
		}
		printBoard(out, b)

		line, ok := read()
		if !ok || line == "q" {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		ti, err := strconv.Atoi(fields[0])
		if err != nil || len(fields[1]) != 1 {
			fmt.Fprintln(out, "Use a number then a letter.")
			continue
		}
		di := int(strings.ToLower(fields[1])[0]) - 'a'

		res, err := matchPair(s, ti-1, di)
		switch {
		case errors.Is(err, domain.ErrBusy):
			fmt.Fprintln(out, "Wait a moment.")
			continue
		case errors.Is(err, domain.ErrUnknownCard):
			fmt.Fprintf(out, "There is no pair %s %s on the board.\n", fields[0], fields[1])
			continue
		case err != nil:
			return err
		}
		switch res {
		case session.Matched:
			fmt.Fprintln(out, "Match!")
		case session.Mismatched:
			fmt.Fprintln(out, "No match.")
		case session.Ignored:
			fmt.Fprintln(out, "Already matched.")
		}
	}
}

// matchPair submits a term and a definition as one move. Both indexes are
// checked before anything is selected, and picks left over from an earlier
// move are cleared first.
func matchPair(s *studio.Studio, ti, di int) (session.PairResult, error) {
	b, err := s.Board()
	if err != nil {
		return session.Ignored, err
	}
	if b.Checking || b.Cleared {
		return session.Ignored, domain.ErrBusy
	}
	if ti < 0 || ti >= len(b.Terms) || di < 0 || di >= len(b.Definitions) {
		return session.Ignored, domain.ErrUnknownCard
	}
	if b.Terms[ti].State == session.TileCorrect || b.Definitions[di].State == session.TileCorrect {
		return session.Ignored, nil
	}

	for i, t := range b.Terms {
		if t.State == session.TileSelected {
			if _, err := s.SelectTile(domain.TermField, i); err != nil {
				return session.Ignored, err
			}
		}
	}
	for i, t := range b.Definitions {
		if t.State == session.TileSelected {
			if _, err := s.SelectTile(domain.DefinitionField, i); err != nil {
				return session.Ignored, err
			}
		}
	}

	if _, err := s.SelectTile(domain.TermField, ti); err != nil {
		return session.Ignored, err
	}
	return s.SelectTile(domain.DefinitionField, di)
}

// printAccuracy summarises the answers graded in this run.
func printAccuracy(s *studio.Studio, out io.Writer) {
	reviews := s.Reviews()
	if len(reviews) == 0 {
		return
	}
	correct := lo.CountBy(reviews, func(r domain.ReviewLog) bool { return r.Correct })
	fmt.Fprintf(out, "%d of %d answers correct.\n", correct, len(reviews))
}

func printBoard(out io.Writer, b session.Board) {
	if b.Cleared {
		fmt.Fprintf(out, "\nRound %d cleared in %.1fs. Press Enter for the next round.\n", b.Round, b.Elapsed.Seconds())
		return
	}
	fmt.Fprintf(out, "\nRound %d/%d  %.1fs  (%d cards left)\n", b.Round, b.Rounds, b.Elapsed.Seconds(), b.Remaining)
	for i := 0; i < len(b.Terms); i++ {
		fmt.Fprintf(out, "  %2d) %-24s  %c) %s\n", i+1, tileText(b.Terms[i]), 'a'+rune(i), tileText(b.Definitions[i]))
	}
}

func tileText(t session.Tile) string {
	switch t.State {
	case session.TileCorrect:
		return "✓"
	case session.TileIncorrect:
		return "✗ " + t.Text
	case session.TileSelected:
		return "> " + t.Text
	default:
		return t.Text
	}
}
