// Git history of the data directory, implemented with go-git.

// Package git records every change of the data file as a commit in a git
// repository rooted at the data directory.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Default committer identity.
const (
	DefaultName  = "librarydb"
	DefaultEmail = "librarydb@localhost"
)

// MaxHistory caps the number of commits History returns.
const MaxHistory = 1000

// gitignore keeps secrets and in-flight temp files out of history.
const gitignore = ".env\n*.tmp*\n"

// Author identifies who made a change. Empty fields use the repo defaults.
type Author struct {
	Name  string
	Email string
}

// Commit is one entry of the history.
type Commit struct {
	Hash    string
	Message string // Subject line.
	Author  string
	Date    time.Time
}

// Repo is a git repository rooted at a directory.
type Repo struct {
	dir   string
	name  string
	email string

	mu   sync.Mutex
	repo *gogit.Repository
}

// Open opens the repository at dir, initializing it with a .gitignore and an
// initial commit when needed.
func Open(ctx context.Context, dir, name, email string) (*Repo, error) {
	if name == "" {
		name = DefaultName
	}
	if email == "" {
		email = DefaultEmail
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directory
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		if repo, err = gogit.PlainInit(dir, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}
	r := &Repo{dir: dir, name: name, email: email, repo: repo}
	if err := r.ensureGitignore(); err != nil {
		return nil, err
	}
	if _, err := repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		if err := r.Commit(ctx, Author{}, "initial commit", ".gitignore"); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Dir returns the repository root.
func (r *Repo) Dir() string {
	return r.dir
}

// Commit stages files and commits them with msg. Paths are relative to the
// repository root or absolute inside it. Nothing is committed when none of
// the files changed.
func (r *Repo) Commit(_ context.Context, author Author, msg string, files ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := r.rel(f)
		if err != nil {
			return err
		}
		if _, err := w.Add(rel); err != nil {
			return fmt.Errorf("failed to stage %s: %w", rel, err)
		}
		rels = append(rels, rel)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	changed := false
	for _, rel := range rels {
		if s, ok := status[rel]; ok && s.Staging != gogit.Unmodified && s.Staging != gogit.Untracked {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if author.Name == "" {
		author.Name = r.name
	}
	if author.Email == "" {
		author.Email = r.email
	}
	now := time.Now()
	_, err = w.Commit(msg, &gogit.CommitOptions{
		Author:    &object.Signature{Name: author.Name, Email: author.Email, When: now},
		Committer: &object.Signature{Name: r.name, Email: r.email, When: now},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// History returns up to n commits touching path, newest first. n <= 0 or
// above MaxHistory means MaxHistory.
func (r *Repo) History(_ context.Context, path string, n int) ([]*Commit, error) {
	if n <= 0 || n > MaxHistory {
		n = MaxHistory
	}
	opts := &gogit.LogOptions{}
	if path != "" && path != "." {
		rel, err := r.rel(path)
		if err != nil {
			return nil, err
		}
		opts.FileName = &rel
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	iter, err := r.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()
	var out []*Commit
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		out = append(out, &Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
	}
	return out, nil
}

// rel converts p into a slash separated path relative to the root.
func (r *Repo) rel(p string) (string, error) {
	if filepath.IsAbs(p) {
		abs, err := filepath.Abs(r.dir)
		if err != nil {
			return "", err
		}
		if p, err = filepath.Rel(abs, p); err != nil {
			return "", fmt.Errorf("%s is outside the repository: %w", p, err)
		}
	}
	p = filepath.Clean(p)
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository", p)
	}
	return filepath.ToSlash(p), nil
}

func (r *Repo) ensureGitignore() error {
	path := filepath.Join(r.dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(gitignore), 0o644); err != nil { //nolint:gosec // G306: data dir gitignore
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	return nil
}
