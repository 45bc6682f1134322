package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/conorfennell/studydeck/internal/archive"
	"github.com/conorfennell/studydeck/internal/config"
	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/logging"
	"github.com/conorfennell/studydeck/internal/parser"
	"github.com/conorfennell/studydeck/internal/storage"
	"github.com/conorfennell/studydeck/internal/studio"
)

const usage = `Usage: studydeck [flags] <command> [args]

Commands:
  create <file|->        Build a deck from "term,definition" lines and print its token
  show <token>           Show a deck and which modes it supports
  study <mode> <token>   Study a deck (flashcards, learn, type, match)
  stats <token>          Show review progress for a deck
  export <token>         Print a deck as "term,definition" lines
  history                List archived decks

Flags:
`

func main() {
	fs := config.NewFlagSet("studydeck")
	title := fs.String("title", domain.UntitledDeck, "Deck title for create, or a new title for study")
	shuffle := fs.Bool("shuffle", false, "Shuffle the study order")
	definitionFirst := fs.Bool("definition-first", false, "Show definitions and ask for terms")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(os.Stderr, cfg.LogLevel)

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Debug("Database opened successfully", "path", cfg.DB)

	var arch *archive.Archive
	if cfg.ArchiveDir != "" {
		if arch, err = archive.Open(cfg.ArchiveDir); err != nil {
			slog.Warn("Deck archive disabled", "error", err)
			arch = nil
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := studio.New(studio.Options{
		Store:     db,
		Archive:   arch,
		RoundSize: cfg.RoundSize,
		Rand:      rand.New(rand.NewPCG(seed, seed>>32)),
	})
	defer s.Close()

	settings := domain.Settings{ShuffleEnabled: *shuffle, TermShownFirst: !*definitionFirst}
	if err := run(s, arch, args, *title, settings, fs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(s *studio.Studio, arch *archive.Archive, args []string, title string, settings domain.Settings, fs *pflag.FlagSet) error {
	command, rest := args[0], args[1:]
	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%s needs %d argument(s)", command, n)
		}
		return nil
	}

	switch command {
	case "create":
		if err := need(1); err != nil {
			return err
		}
		return create(s, rest[0], title, settings)
	case "show":
		if err := need(1); err != nil {
			return err
		}
		if err := load(s, rest[0]); err != nil {
			return err
		}
		return show(s)
	case "study":
		if err := need(2); err != nil {
			return err
		}
		mode := domain.Mode(strings.ToLower(rest[0]))
		if !mode.Valid() {
			return fmt.Errorf("%w: %s", domain.ErrUnknownMode, rest[0])
		}
		if err := load(s, rest[1]); err != nil {
			return err
		}
		if err := editDeck(s, title, settings, fs); err != nil {
			return err
		}
		return study(s, mode, os.Stdin, os.Stdout)
	case "stats":
		if err := need(1); err != nil {
			return err
		}
		if err := load(s, rest[0]); err != nil {
			return err
		}
		return stats(s)
	case "export":
		if err := need(1); err != nil {
			return err
		}
		if err := load(s, rest[0]); err != nil {
			return err
		}
		if err := parser.Format(os.Stdout, s.Deck().Cards); err != nil {
			return err
		}
		fmt.Println()
		return nil
	case "history":
		return history(arch)
	}
	return fmt.Errorf("unknown command %q", command)
}

func create(s *studio.Studio, path, title string, settings domain.Settings) error {
	var res parser.Result
	var err error
	if path == "-" {
		res, err = parser.Parse(os.Stdin)
	} else {
		res, err = parser.ParseFile(path)
	}
	if err != nil {
		return err
	}
	if res.Ignored > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d line(s) that were not \"term,definition\".\n", res.Ignored)
	}

	token, err := s.CreateDeck(title, res.Cards, settings)
	if err != nil {
		return err
	}
	fmt.Printf("Created %q with %d cards.\n%s\n", title, len(res.Cards), token)
	return nil
}

// editDeck applies the title and settings flags given on the command line
// and prints the new token when the deck changed.
func editDeck(s *studio.Studio, title string, settings domain.Settings, fs *pflag.FlagSet) error {
	before := s.ShareToken()
	if fs.Changed("title") {
		if _, err := s.RenameDeck(title); err != nil {
			return err
		}
	}
	if fs.Changed("shuffle") || fs.Changed("definition-first") {
		d := s.Deck()
		if fs.Changed("shuffle") {
			d.Settings.ShuffleEnabled = settings.ShuffleEnabled
		}
		if fs.Changed("definition-first") {
			d.Settings.TermShownFirst = settings.TermShownFirst
		}
		if _, err := s.SaveDeckSettings(d.Settings); err != nil {
			return err
		}
	}
	if token := s.ShareToken(); token != before {
		fmt.Printf("Deck saved. New link token:\n%s\n\n", token)
	}
	return nil
}

func load(s *studio.Studio, token string) error {
	_, status := s.LoadDeck(token)
	switch status {
	case studio.NoDeck:
		return errors.New("no deck token given")
	case studio.CorruptLink:
		return errors.New("that deck link is damaged or incomplete")
	}
	return nil
}

func show(s *studio.Studio) error {
	d := s.Deck()
	fmt.Printf("%s (%d cards, shuffle %v, terms first %v)\n\n", d.Title, len(d.Cards), d.Settings.ShuffleEnabled, d.Settings.TermShownFirst)
	for i, c := range d.Cards {
		fmt.Printf("%3d. %s = %s\n", i+1, c.Term, c.Definition)
	}
	fmt.Println()
	resumable := s.ResumableModes()
	for _, mode := range domain.Modes {
		state := "available"
		if err := s.Availability(mode); err != nil {
			state = "disabled: " + err.Error()
		} else if lo.Contains(resumable, mode) {
			state = "in progress, resumes where you left off"
		}
		fmt.Printf("  %-10s %s\n", mode, state)
	}
	return nil
}

func stats(s *studio.Studio) error {
	now := time.Now()
	st := s.Stats(now)
	fmt.Printf("Cards: %d  Reviewed: %d  Due now: %d  Mastered: %d\n", st.Total, st.Reviewed, st.Due, st.Mastered)
	if best, ok := s.BestTime(); ok {
		fmt.Printf("Best match round: %.1fs\n", best.Seconds())
	}
	if next, ok := s.NextDue(now); ok {
		fmt.Printf("Next up: %s (level %d)\n", next.Term, next.MasteryScore)
	}
	return nil
}

func history(arch *archive.Archive) error {
	if arch == nil {
		return errors.New("no archive configured (set --archive-dir)")
	}
	entries, err := arch.History(20)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n", e.Hash[:7], e.When.Format(time.DateTime), strings.TrimSpace(e.Message))
	}
	return nil
}
