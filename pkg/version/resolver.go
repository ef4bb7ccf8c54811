// Package version resolves the latest Embulk release for the download redirects.
//
// The vendor answers a "latest version" request with a redirect whose target
// path ends in the version. [Resolver] extracts it with a pattern and keeps the
// result in a [cache.Cache] (a file named embulk.version by default) for five
// minutes. A cached value is returned verbatim without re-validation.
package version

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/embulk/pluginindex/pkg/buildinfo"
	"github.com/embulk/pluginindex/pkg/cache"
	"github.com/embulk/pluginindex/pkg/errors"
	"github.com/embulk/pluginindex/pkg/integrations"
	"github.com/embulk/pluginindex/pkg/observability"
)

const (
	DefaultVendorURL    = "https://bintray.com"
	DefaultLatestPath   = "/embulk/maven/embulk/_latestVersion"
	DefaultDownloadBase = "https://dl.bintray.com/embulk/maven/"

	// CacheKey names the cached version entry.
	CacheKey = "embulk.version"

	// DefaultTTL is how long a resolved version is trusted.
	DefaultTTL = 5 * time.Minute
)

// ErrNoVersion means the redirect target did not contain a version.
var ErrNoVersion = stderrors.New("no version in redirect target")

var versionPattern = regexp.MustCompile(`\d+\.\d+[^/]*`)

// Locator returns the redirect target of a URL without following it.
type Locator interface {
	GetLocation(ctx context.Context, url string) (string, error)
}

// Resolver finds the latest release version.
type Resolver struct {
	cache   cache.Cache
	locator Locator
	url     string
	logger  *log.Logger
}

// NewResolver creates a Resolver that asks vendorURL+latestPath and caches
// answers in c. Empty arguments select the defaults; a nil cache disables
// caching.
func NewResolver(c cache.Cache, vendorURL, latestPath string, logger *log.Logger) *Resolver {
	if c == nil {
		c = cache.NewNullCache()
	}
	if vendorURL == "" {
		vendorURL = DefaultVendorURL
	}
	if latestPath == "" {
		latestPath = DefaultLatestPath
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		cache:   c,
		locator: integrations.NewClient(map[string]string{"User-Agent": buildinfo.UserAgent()}),
		url:     strings.TrimSuffix(vendorURL, "/") + latestPath,
		logger:  logger,
	}
}

// WithLocator replaces the HTTP client used for lookups.
func (r *Resolver) WithLocator(l Locator) *Resolver {
	r.locator = l
	return r
}

// Resolve returns the latest version, from cache when fresh.
//
// A missing or unreadable cache entry falls through to the vendor. Failing to
// reach the vendor or to find a version in its answer is an error coded
// [errors.ErrCodeVersionResolve]. Failing to store the answer is logged only.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	hooks := observability.Cache()

	data, ok, err := r.cache.Get(ctx, CacheKey)
	if err != nil {
		r.logger.Warn("version cache unreadable", "err", err)
	}
	if ok {
		hooks.OnCacheHit(ctx, CacheKey)
		return string(data), nil
	}
	hooks.OnCacheMiss(ctx, CacheKey)

	v, err := r.Fetch(ctx)
	if err != nil {
		return "", err
	}

	if err := r.cache.Set(ctx, CacheKey, []byte(v)); err != nil {
		r.logger.Warn("failed to cache version", "version", v, "err", err)
	} else {
		hooks.OnCacheSet(ctx, CacheKey, len(v))
	}
	return v, nil
}

// Fetch asks the vendor for the latest version, bypassing the cache.
func (r *Resolver) Fetch(ctx context.Context) (string, error) {
	loc, err := r.locator.GetLocation(ctx, r.url)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeVersionResolve, err, "latest version lookup")
	}
	v, err := Parse(loc)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeVersionResolve, err, "latest version lookup")
	}
	r.logger.Debug("resolved latest version", "version", v, "location", loc)
	return v, nil
}

// Parse extracts the version from a redirect target such as
// https://bintray.com/embulk/maven/embulk/0.9.23.
func Parse(location string) (string, error) {
	v := versionPattern.FindString(location)
	if v == "" {
		return "", fmt.Errorf("%w: %q", ErrNoVersion, location)
	}
	return v, nil
}

// JarURL returns the download URL of the executable jar for version.
func JarURL(base, version string) string {
	if base == "" {
		base = DefaultDownloadBase
	}
	return strings.TrimSuffix(base, "/") + "/embulk-" + version + ".jar"
}
