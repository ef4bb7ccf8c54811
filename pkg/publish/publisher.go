package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/embulk/pluginindex/pkg/errors"
)

// Defaults for the published listing.
const (
	DefaultRemoteURL    = "https://github.com/embulk/embulk.github.io"
	DefaultBranch       = "master"
	DefaultDir          = "tmp/gh-pages"
	DefaultTemplatePath = "plugins/index.html.hbs"
	DefaultOutputPath   = "plugins/index.html"
	DefaultMessage      = "Updated plugins/index.html"
	DefaultCredHost     = "github.com"
)

// Options configures a [Publisher].
type Options struct {
	Dir          string // Local checkout
	RemoteURL    string
	Branch       string
	TemplatePath string // Relative to the checkout
	OutputPath   string // Relative to the checkout
	Message      string
	Author       Signature

	// Token authenticates the push. Empty pushes without credentials.
	Token string

	// CredentialsPath is where Token is written during a push.
	CredentialsPath string
	CredentialsHost string
}

// Publisher renders into a repository checkout and pushes changes.
type Publisher struct {
	opts   Options
	open   Opener
	retry  RetryPolicy
	logger *log.Logger
}

// New creates a Publisher that uses go-git. Empty options take the defaults;
// CredentialsPath defaults to $HOME/.git_credentials.
func New(opts Options, logger *log.Logger) *Publisher {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.RemoteURL == "" {
		opts.RemoteURL = DefaultRemoteURL
	}
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}
	if opts.TemplatePath == "" {
		opts.TemplatePath = DefaultTemplatePath
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.Message == "" {
		opts.Message = DefaultMessage
	}
	if opts.Author.Name == "" {
		opts.Author = Signature{Name: "Embulk Plugin Index", Email: "embulk-plugin-index@users.noreply.github.com"}
	}
	if opts.CredentialsHost == "" {
		opts.CredentialsHost = DefaultCredHost
	}
	if opts.CredentialsPath == "" {
		home, _ := os.UserHomeDir()
		opts.CredentialsPath = filepath.Join(home, CredentialsFile)
	}
	if logger == nil {
		logger = log.Default()
	}

	p := &Publisher{
		opts:   opts,
		open:   GitOpener(opts.RemoteURL, opts.Branch, opts.Author),
		logger: logger,
	}
	p.retry = RetryPolicy{MaxAttempts: 2, BeforeRetry: p.resetCheckout}
	return p
}

// WithOpener replaces how the checkout is opened.
func (p *Publisher) WithOpener(open Opener) *Publisher {
	p.open = open
	return p
}

// WithRetry replaces the retry policy.
func (p *Publisher) WithRetry(policy RetryPolicy) *Publisher {
	p.retry = policy
	return p
}

// Options returns the effective options.
func (p *Publisher) Options() Options { return p.opts }

// Publish renders the page with the checkout's template, commits it and
// pushes when HEAD moved. It reports whether a push happened.
func (p *Publisher) Publish(ctx context.Context, render func(template string) (string, error)) (bool, error) {
	var pushed bool
	err := p.retry.Do(ctx, func(attempt int) error {
		var err error
		pushed, err = p.publishOnce(ctx, render)
		if err != nil {
			p.logger.Warn("publish attempt failed", "attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		return false, errors.Wrap(errors.ErrCodePublish, err, "publish to %s", p.opts.RemoteURL)
	}
	return pushed, nil
}

func (p *Publisher) publishOnce(ctx context.Context, render func(string) (string, error)) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(p.opts.Dir), 0o755); err != nil {
		return false, err
	}

	p.logger.Info("opening checkout", "dir", p.opts.Dir, "remote", p.opts.RemoteURL)
	repo, err := p.open(ctx, p.opts.Dir)
	if err != nil {
		return false, err
	}
	if err := repo.Sync(ctx); err != nil {
		return false, err
	}

	before, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("read HEAD: %w", err)
	}

	tpl, err := repo.ReadFile(p.opts.TemplatePath)
	if err != nil {
		return false, fmt.Errorf("read template: %w", err)
	}
	html, err := render(string(tpl))
	if err != nil {
		return false, err
	}
	if err := repo.WriteFile(p.opts.OutputPath, []byte(html)); err != nil {
		return false, fmt.Errorf("write %s: %w", p.opts.OutputPath, err)
	}
	if err := repo.Commit(p.opts.Message, p.opts.OutputPath); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	after, err := repo.Head()
	if err != nil {
		return false, fmt.Errorf("read HEAD: %w", err)
	}
	if before == after {
		p.logger.Info("page unchanged, not pushing", "head", short(after))
		return false, nil
	}

	p.logger.Info("pushing", "from", short(before), "to", short(after), "branch", p.opts.Branch)
	if err := p.push(ctx, repo); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	return true, nil
}

func (p *Publisher) push(ctx context.Context, repo Repository) error {
	var auth transport.AuthMethod
	if p.opts.Token != "" {
		path := p.opts.CredentialsPath
		if err := WriteCredentials(path, p.opts.Token, p.opts.CredentialsHost); err != nil {
			return fmt.Errorf("write credentials: %w", err)
		}
		defer func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				p.logger.Error("failed to remove credentials file", "path", path, "err", err)
			}
		}()

		basic, err := ReadCredentials(path, p.opts.CredentialsHost)
		if err != nil {
			return err
		}
		auth = basic
	}
	return repo.Push(ctx, auth)
}

func (p *Publisher) resetCheckout(attempt int, cause error) error {
	p.logger.Warn("recreating checkout before retry", "dir", p.opts.Dir, "attempt", attempt, "cause", cause)
	if err := os.RemoveAll(p.opts.Dir); err != nil {
		return err
	}
	return os.MkdirAll(p.opts.Dir, 0o755)
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
