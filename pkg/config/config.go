// Package config loads pluginindex settings.
//
// Settings come from built-in defaults, then an optional TOML file, then
// the environment:
//
//	PORT          server listen port
//	HOME          directory holding the push credentials file
//	GITHUB_TOKEN  push token
//	REDIS_URL     keep the version cache in redis instead of a file
//
// Example file:
//
//	[catalog]
//	workers = 4
//	ordering = "downloads-then-stars"
//
//	[server]
//	redirect_mode = "meta"
//	schedule = "@every 1h"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/embulk/pluginindex/pkg/catalog"
	"github.com/embulk/pluginindex/pkg/errors"
	"github.com/embulk/pluginindex/pkg/integrations/github"
	"github.com/embulk/pluginindex/pkg/integrations/rubygems"
	"github.com/embulk/pluginindex/pkg/pipeline"
	"github.com/embulk/pluginindex/pkg/publish"
	"github.com/embulk/pluginindex/pkg/version"
)

// DefaultPort is the server port when PORT is unset.
const DefaultPort = 8580

// Orderings accepted by catalog.ordering.
const (
	OrderingPacked             = "packed"
	OrderingDownloadsThenStars  = "downloads-then-stars"
)

// Redirect modes accepted by server.redirect_mode.
const (
	RedirectStatus = "redirect"
	RedirectMeta   = "meta"
)

// Config is the complete configuration.
type Config struct {
	Catalog Catalog `toml:"catalog"`
	Publish Publish `toml:"publish"`
	Version Version `toml:"version"`
	Server  Server  `toml:"server"`
}

// Catalog configures search and enrichment.
type Catalog struct {
	RegistryURL  string `toml:"registry_url"`
	GitHubAPIURL string `toml:"github_api_url"`
	Prefix       string `toml:"prefix"`
	MaxPages     int    `toml:"max_pages"`
	LastPageSize int    `toml:"last_page_size"`
	Workers      int    `toml:"workers"`
	AllowPartial bool   `toml:"allow_partial"`
	Ordering     string `toml:"ordering"`
}

// Publish configures the destination repository.
type Publish struct {
	RemoteURL       string `toml:"remote_url"`
	Branch          string `toml:"branch"`
	Dir             string `toml:"dir"`
	Template        string `toml:"template"`
	Output          string `toml:"output"`
	AuthorName      string `toml:"author_name"`
	AuthorEmail     string `toml:"author_email"`
	CredentialsPath string `toml:"credentials_path"`
	Token           string `toml:"-"`
}

// Version configures latest-version lookups and their cache.
type Version struct {
	VendorURL    string   `toml:"vendor_url"`
	LatestPath   string   `toml:"latest_path"`
	DownloadBase string   `toml:"download_base"`
	CacheDir     string   `toml:"cache_dir"`
	CacheTTL     Duration `toml:"cache_ttl"`
	RedisURL     string   `toml:"redis_url"`
}

// Server configures the redirect service.
type Server struct {
	Port         int    `toml:"port"`
	RedirectMode string `toml:"redirect_mode"`
	Schedule     string `toml:"schedule"`
}

// Duration is a time.Duration written as a string such as "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: Catalog{
			RegistryURL:  rubygems.DefaultURL,
			GitHubAPIURL: github.DefaultURL,
			Prefix:       catalog.DefaultPrefix,
			MaxPages:     catalog.DefaultMaxPages,
			LastPageSize: catalog.DefaultLastPageSize,
			Workers:      catalog.DefaultWorkers,
			Ordering:     OrderingPacked,
		},
		Publish: Publish{
			RemoteURL:   publish.DefaultRemoteURL,
			Branch:      publish.DefaultBranch,
			Dir:         publish.DefaultDir,
			Template:    publish.DefaultTemplatePath,
			Output:      publish.DefaultOutputPath,
			AuthorName:  "Embulk Plugin Index",
			AuthorEmail: "embulk-plugin-index@users.noreply.github.com",
		},
		Version: Version{
			VendorURL:    version.DefaultVendorURL,
			LatestPath:   version.DefaultLatestPath,
			DownloadBase: version.DefaultDownloadBase,
			CacheDir:     ".",
			CacheTTL:     Duration{version.DefaultTTL},
		},
		Server: Server{
			Port:         DefaultPort,
			RedirectMode: RedirectStatus,
		},
	}
}

// Load reads path (if not empty) over the defaults, applies the process
// environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "PORT=%q", v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("GITHUB_TOKEN"); ok {
		c.Publish.Token = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Version.RedisURL = v
	}
	if c.Publish.CredentialsPath == "" {
		if home, ok := lookup("HOME"); ok && home != "" {
			c.Publish.CredentialsPath = filepath.Join(home, publish.CredentialsFile)
		}
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	checkErr := func(key string, err error) {
		if err != nil {
			problems = append(problems, key+": "+errors.UserMessage(err))
		}
	}

	checkErr("catalog.registry_url", errors.ValidateURL(c.Catalog.RegistryURL))
	checkErr("catalog.github_api_url", errors.ValidateURL(c.Catalog.GitHubAPIURL))
	check(c.Catalog.Prefix != "", "catalog.prefix is empty")
	check(c.Catalog.MaxPages > 0, "catalog.max_pages must be positive, got %d", c.Catalog.MaxPages)
	check(c.Catalog.LastPageSize > 0, "catalog.last_page_size must be positive, got %d", c.Catalog.LastPageSize)
	check(c.Catalog.Workers > 0, "catalog.workers must be positive, got %d", c.Catalog.Workers)
	check(c.Catalog.Ordering == OrderingPacked || c.Catalog.Ordering == OrderingDownloadsThenStars,
		"catalog.ordering must be %q or %q, got %q", OrderingPacked, OrderingDownloadsThenStars, c.Catalog.Ordering)
	checkErr("publish.remote_url", errors.ValidateRemoteURL(c.Publish.RemoteURL))
	checkErr("publish.template", errors.ValidatePath(c.Publish.Template))
	checkErr("publish.output", errors.ValidatePath(c.Publish.Output))
	check(c.Publish.Branch != "", "publish.branch is empty")
	check(c.Publish.Dir != "", "publish.dir is empty")
	checkErr("version.vendor_url", errors.ValidateURL(c.Version.VendorURL))
	checkErr("version.download_base", errors.ValidateURL(c.Version.DownloadBase))
	check(c.Version.CacheTTL.Duration >= 0, "version.cache_ttl must not be negative")
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port out of range: %d", c.Server.Port)
	check(c.Server.RedirectMode == RedirectStatus || c.Server.RedirectMode == RedirectMeta,
		"server.redirect_mode must be %q or %q, got %q", RedirectStatus, RedirectMeta, c.Server.RedirectMode)

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "%s", strings.Join(problems, "; "))
	}
	return nil
}

// Ordering returns the listing order selected by catalog.ordering.
func (c *Config) Ordering() catalog.Ordering {
	if c.Catalog.Ordering == OrderingDownloadsThenStars {
		return catalog.ByDownloadsThenStars
	}
	return catalog.ByPackedKey
}

// PipelineOptions converts the catalog section for a pipeline run.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		RegistryURL:  c.Catalog.RegistryURL,
		GitHubAPIURL: c.Catalog.GitHubAPIURL,
		Prefix:       c.Catalog.Prefix,
		MaxPages:     c.Catalog.MaxPages,
		LastPageSize: c.Catalog.LastPageSize,
		Workers:      c.Catalog.Workers,
		AllowPartial: c.Catalog.AllowPartial,
		Ordering:     c.Ordering(),
	}
}

// PublishOptions converts the publish section for publish.New.
func (c *Config) PublishOptions() publish.Options {
	return publish.Options{
		Dir:             c.Publish.Dir,
		RemoteURL:       c.Publish.RemoteURL,
		Branch:          c.Publish.Branch,
		TemplatePath:    c.Publish.Template,
		OutputPath:      c.Publish.Output,
		Author:          publish.Signature{Name: c.Publish.AuthorName, Email: c.Publish.AuthorEmail},
		Token:           c.Publish.Token,
		CredentialsPath: c.Publish.CredentialsPath,
	}
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
