package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Repository is the subset of a git checkout a [Publisher] drives.
type Repository interface {
	// Sync checks out the branch and fast-forwards it to the remote.
	Sync(ctx context.Context) error

	// Head returns the commit hash HEAD points at.
	Head() (string, error)

	ReadFile(rel string) ([]byte, error)
	WriteFile(rel string, data []byte) error

	// Commit stages paths and commits them. A commit that would not change
	// the tree is skipped without error.
	Commit(message string, paths ...string) error

	// Push sends the branch to the remote. auth may be nil.
	Push(ctx context.Context, auth transport.AuthMethod) error
}

// Opener returns the checkout at dir, cloning it first when missing.
type Opener func(ctx context.Context, dir string) (Repository, error)

// Signature identifies the commit author.
type Signature struct {
	Name  string
	Email string
}

// GitOpener returns an Opener backed by go-git.
func GitOpener(remoteURL, branch string, author Signature) Opener {
	return func(ctx context.Context, dir string) (Repository, error) {
		return OpenGit(ctx, dir, remoteURL, branch, author)
	}
}

// OpenGit opens the repository at dir, or clones remoteURL into it.
func OpenGit(ctx context.Context, dir, remoteURL, branch string, author Signature) (*GitRepository, error) {
	ref := plumbing.NewBranchReferenceName(branch)

	r, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		r, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           remoteURL,
			ReferenceName: ref,
			SingleBranch:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", remoteURL, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	return &GitRepository{repo: r, dir: dir, branch: ref, author: author}, nil
}

// GitRepository is a [Repository] on a local go-git worktree.
type GitRepository struct {
	repo   *git.Repository
	dir    string
	branch plumbing.ReferenceName
	author Signature
}

func (g *GitRepository) Sync(ctx context.Context) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: g.branch}); err != nil {
		return fmt.Errorf("checkout %s: %w", g.branch.Short(), err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    git.DefaultRemoteName,
		ReferenceName: g.branch,
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("merge origin/%s: %w", g.branch.Short(), err)
	}
	return nil
}

func (g *GitRepository) Head() (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

func (g *GitRepository) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(g.dir, rel))
}

func (g *GitRepository) WriteFile(rel string, data []byte) error {
	path := filepath.Join(g.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (g *GitRepository) Commit(message string, paths ...string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := wt.Add(filepath.ToSlash(p)); err != nil {
			return fmt.Errorf("add %s: %w", p, err)
		}
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: g.author.Name, Email: g.author.Email, When: time.Now()},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	return err
}

func (g *GitRepository) Push(ctx context.Context, auth transport.AuthMethod) error {
	spec := config.RefSpec(fmt.Sprintf("%s:%s", g.branch, g.branch))
	err := g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}
