// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package vcs checks out module branches and commits single files back to
// them. Only git is supported; other repository kinds report
// ErrUnsupported.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/vertimus/vertimus/core/model"
)

var (
	// ErrUnsupported is returned for repository kinds other than git.
	ErrUnsupported = errors.New("unsupported version control system")
	// ErrCommitFailed wraps every failure of Commit. Nothing is left
	// committed locally when it is returned.
	ErrCommitFailed = errors.New("commit failed")
)

// DirFunc returns where a module branch is checked out.
type DirFunc func(vcsType, module, branch string) string

// CheckoutProvider produces an up to date local copy of a branch.
type CheckoutProvider interface {
	// Dir returns the checkout directory without touching it.
	Dir(m *model.Module, b *model.Branch) string
	// Checkout clones or refreshes the branch and returns its directory.
	Checkout(ctx context.Context, m *model.Module, b *model.Branch) (string, error)
}

// Committer commits one file into a checkout.
type Committer interface {
	Commit(ctx context.Context, req CommitRequest) (string, error)
}

// Git implements CheckoutProvider and Committer with go-git.
type Git struct {
	DirFor DirFunc
	// Push sends commits to the origin remote.
	Push bool

	logger zerolog.Logger
}

var (
	_ CheckoutProvider = (*Git)(nil)
	_ Committer        = (*Git)(nil)
)

// NewGit returns a Git provider.
func NewGit(dirFor DirFunc, push bool) *Git {
	return &Git{DirFor: dirFor, Push: push, logger: log.With().Str("sys", "vcs").Logger()}
}

// Dir implements CheckoutProvider.
func (g *Git) Dir(m *model.Module, b *model.Branch) string {
	dir := g.DirFor(m.VCSType, m.Name, b.Name)
	if b.VCSSubpath != "" {
		dir = filepath.Join(dir, b.VCSSubpath)
	}

	return dir
}

// Checkout implements CheckoutProvider.
func (g *Git) Checkout(ctx context.Context, m *model.Module, b *model.Branch) (string, error) {
	if m.VCSType != "git" {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, m.VCSType)
	}

	root := g.DirFor(m.VCSType, m.Name, b.Name)
	ref := plumbing.NewBranchReferenceName(b.Name)

	repo, err := git.PlainOpen(root)

	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(root), err)
		}

		g.logger.Info().Str("module", m.Name).Str("branch", b.Name).Msg("Cloning")

		_, err = git.PlainCloneContext(ctx, root, false, &git.CloneOptions{
			URL:           m.VCSRoot,
			ReferenceName: ref,
			SingleBranch:  true,
			Depth:         1,
		})
		if err != nil {
			return "", fmt.Errorf("failed to clone %s: %w", m.VCSRoot, err)
		}
	case err != nil:
		return "", fmt.Errorf("failed to open %s: %w", root, err)
	default:
		wt, err := repo.Worktree()
		if err != nil {
			return "", err
		}

		// Drop local leftovers such as generated files before updating.
		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
			return "", fmt.Errorf("failed to reset %s: %w", root, err)
		}

		err = wt.PullContext(ctx, &git.PullOptions{
			RemoteName:    git.DefaultRemoteName,
			ReferenceName: ref,
			SingleBranch:  true,
			Force:         true,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("failed to update %s: %w", root, err)
		}
	}

	return g.Dir(m, b), nil
}

// Author identifies who a commit is made for.
type Author struct {
	Name  string
	Email string
}

// CommitRequest describes a single file commit.
type CommitRequest struct {
	// Root is the checkout directory. It may be a subdirectory of the
	// repository when the branch has a subpath.
	Root string
	// Source is the local file to commit.
	Source string
	// Dest is the destination relative to Root.
	Dest    string
	Message string
	Author  Author
}

// Commit implements Committer. The file is copied to its destination,
// staged, committed and pushed when enabled. A failed push resets the
// branch to the commit it started from.
func (g *Git) Commit(ctx context.Context, req CommitRequest) (string, error) {
	dir, err := filepath.Abs(req.Root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	// Paths are staged relative to the worktree root.
	dest, err := filepath.Rel(wt.Filesystem.Root(), filepath.Join(dir, req.Dest))
	if err != nil || !filepath.IsLocal(dest) {
		return "", fmt.Errorf("%w: %s is outside the repository", ErrCommitFailed, req.Dest)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: no HEAD: %w", ErrCommitFailed, err)
	}

	rollback := func() {
		if err := wt.Reset(&git.ResetOptions{Commit: head.Hash(), Mode: git.HardReset}); err != nil {
			g.logger.Error().Err(err).Str("root", req.Root).Msg("Could not roll back failed commit")
		}
	}

	if err := copy.Copy(req.Source, filepath.Join(dir, req.Dest)); err != nil {
		return "", fmt.Errorf("%w: copy: %w", ErrCommitFailed, err)
	}

	if _, err := wt.Add(filepath.ToSlash(dest)); err != nil {
		rollback()

		return "", fmt.Errorf("%w: add: %w", ErrCommitFailed, err)
	}

	sig := &object.Signature{Name: req.Author.Name, Email: req.Author.Email, When: time.Now()}

	hash, err := wt.Commit(req.Message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		rollback()

		return "", fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	if g.Push {
		err := repo.PushContext(ctx, &git.PushOptions{RemoteName: git.DefaultRemoteName})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			rollback()

			return "", fmt.Errorf("%w: push: %w", ErrCommitFailed, err)
		}
	}

	g.logger.Info().
		Str("root", req.Root).
		Str("file", dest).
		Str("commit", hash.String()).
		Msg("Committed file")

	return hash.String(), nil
}
