// Package vcs commits and pushes cleanup changes with go-git.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned by Open when no parent directory holds a
// git repository.
var ErrNotRepository = errors.New("not a git repository")

// ErrNothingToCommit is returned by Commit when the worktree has no staged changes.
var ErrNothingToCommit = errors.New("nothing to commit")

// Author identifies the committer. A zero Author uses the git config identity.
type Author struct {
	Name  string
	Email string
}

// fallbackAuthor is used when neither the caller nor git config names one.
var fallbackAuthor = Author{Name: "unused-cleaner", Email: "unused-cleaner@localhost"}

// Repo is a git working copy containing the project.
type Repo struct {
	repo *git.Repository
	now  func() time.Time
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
	}
	if err != nil {
		return nil, err
	}
	return &Repo{repo: repo, now: time.Now}, nil
}

// HasChanges reports whether the worktree differs from HEAD, including
// untracked files.
func (r *Repo) HasChanges() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

// StageAll stages every change in the worktree, deletions included.
func (r *Repo) StageAll() error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	return nil
}

// Commit records the staged changes and returns the new commit hash.
func (r *Repo) Commit(message string, author Author) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", err
	}

	opts := &git.CommitOptions{}
	if author.Name != "" {
		opts.Author = r.signature(author)
	}

	hash, err := wt.Commit(message, opts)
	if errors.Is(err, git.ErrMissingAuthor) {
		hash, err = wt.Commit(message, &git.CommitOptions{Author: r.signature(fallbackAuthor)})
	}
	if errors.Is(err, git.ErrEmptyCommit) {
		return "", ErrNothingToCommit
	}
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

func (r *Repo) signature(a Author) *object.Signature {
	email := a.Email
	if email == "" {
		email = fallbackAuthor.Email
	}
	return &object.Signature{Name: a.Name, Email: email, When: r.now()}
}

// CurrentBranch returns the checked-out branch name, or "" for a detached HEAD.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", nil
}

// Push sends the current branch to remote. A detached HEAD is pushed to
// defaultBranch. The branch name that was pushed is returned.
func (r *Repo) Push(ctx context.Context, remote, defaultBranch string) (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}

	src := "HEAD"
	if branch != "" {
		src = plumbing.NewBranchReferenceName(branch).String()
	} else {
		branch = defaultBranch
	}
	dst := plumbing.NewBranchReferenceName(branch).String()

	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(src + ":" + dst)},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("push to %s/%s: %w", remote, branch, err)
	}
	return branch, nil
}
