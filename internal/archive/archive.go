// Package archive keeps a local git history of every deck the user creates
// or re-saves.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/parser"
)

const (
	deckFile  = "deck.csv"
	tokenFile = "token.txt"
)

var author = object.Signature{Name: "studydeck", Email: "studydeck@localhost"}

// Entry is one archived revision.
type Entry struct {
	Hash    string
	Message string
	When    time.Time
}

// Archive is a git working tree holding the latest deck.
type Archive struct {
	path string
	repo *git.Repository
	now  func() time.Time
}

// Open opens the repository at path, creating it if it does not exist.
func Open(path string) (*Archive, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		slog.Info("Creating deck archive", "path", path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive dir %s: %w", path, err)
		}
		repo, err = git.PlainInit(path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive at %s: %w", path, err)
	}
	return &Archive{path: path, repo: repo, now: time.Now}, nil
}

// Record writes the deck and its share token into the working tree and
// commits them. It reports false when nothing changed since the last commit.
func (a *Archive) Record(d domain.Deck, token string) (bool, error) {
	var csv bytes.Buffer
	if err := parser.Format(&csv, d.Cards); err != nil && !errors.Is(err, parser.ErrNoCards) {
		return false, err
	}
	if err := os.WriteFile(filepath.Join(a.path, deckFile), csv.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", deckFile, err)
	}
	if err := os.WriteFile(filepath.Join(a.path, tokenFile), []byte(token+"\n"), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", tokenFile, err)
	}

	worktree, err := a.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree for archive at %s: %w", a.path, err)
	}
	for _, name := range []string{deckFile, tokenFile} {
		if _, err := worktree.Add(name); err != nil {
			return false, fmt.Errorf("failed to stage %s: %w", name, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read archive status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}

	sig := author
	sig.When = a.now()
	message := fmt.Sprintf("%s (%d cards)", d.Title, len(d.Cards))
	hash, err := worktree.Commit(message, &git.CommitOptions{Author: &sig})
	if err != nil {
		return false, fmt.Errorf("failed to commit deck: %w", err)
	}
	slog.Info("Archived deck", "title", d.Title, "commit", hash.String()[:7])
	return true, nil
}

// History lists up to limit revisions, newest first. A limit of zero or less
// lists all of them.
func (a *Archive) History(limit int) ([]Entry, error) {
	head, err := a.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// An empty repository has no HEAD yet.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive HEAD: %w", err)
	}
	iter, err := a.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read archive log: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(entries) == limit {
			return storer.ErrStop
		}
		entries = append(entries, Entry{Hash: c.Hash.String(), Message: c.Message, When: c.Author.When})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk archive log: %w", err)
	}
	return entries, nil
}
