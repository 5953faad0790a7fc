package fileserver

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCacheControl is served when no cache-control rule matches.
const DefaultCacheControl = "no-cache, no-store, must-revalidate"

// Config controls URI resolution and caching.
type Config struct {
	// Root is the default served-files directory.
	Root string

	// RootMap maps URI prefixes to alternate roots. Patterns are plain
	// prefixes ending in "/"; an empty value disables the subtree.
	// First match wins.
	RootMap []Rule

	// Redirects maps exact URIs to 301 destinations.
	Redirects []Rule

	// Aliases rewrites URIs before path construction. See applyAliases
	// for wildcard semantics.
	Aliases []Rule

	// CacheControlRules selects the Cache-Control header by URI.
	CacheControlRules []Rule

	// CacheBust lists URIs whose html/js content gets version-stamped
	// derived copies.
	CacheBust []Rule

	// SSI lists html URIs whose include directives are expanded into
	// derived copies.
	SSI []Rule

	// NotFoundFile is the root-relative document served with status 404
	// when a URI resolves to nothing. Empty means bare 404 responses.
	NotFoundFile string

	// DefaultLanguage is used when no Accept-Language candidate has a
	// localized file. Default: "en".
	DefaultLanguage string

	// CacheEnabled turns the in-memory content cache on.
	CacheEnabled bool

	// MaxCacheEntryBytes caps the size of a cacheable file; 0 means
	// no cap.
	MaxCacheEntryBytes int64

	// Version is the run version used by cache-bust transforms.
	// Default: derived from the server start time.
	Version string

	// Logger receives resolution failures. Default: slog.Default().
	Logger *slog.Logger
}

// Resolution is the outcome of resolving one URI.
type Resolution struct {
	// Status is the HTTP status to serve: 200, 301 or 404.
	Status int

	// RedirectURL is set when Status is 301.
	RedirectURL string

	// Entry holds the content to serve with a reader reference already
	// acquired; the caller must Release it exactly once. Nil for
	// redirects and bare 404s.
	Entry *Entry

	// ContentLanguage is set when localization chose a language.
	ContentLanguage string
}

// Resolver runs the rewrite pipeline and owns the content cache.
type Resolver struct {
	cfg   Config
	cache *Cache
	log   *slog.Logger
}

// NewResolver creates a resolver. When caching is disabled the derived
// copy trees under every configured root are purged, since stale copies
// can no longer be detected against the cache.
func NewResolver(cfg Config) *Resolver {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.Version == "" {
		cfg.Version = RunVersion(time.Now())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Resolver{
		cfg:   cfg,
		cache: NewCache(cfg.MaxCacheEntryBytes),
		log:   cfg.Logger.With("component", "fileserver"),
	}

	if !cfg.CacheEnabled {
		r.purgeDerived()
	}
	return r
}

// Version returns the run version the resolver stamps into cache-busted
// content.
func (r *Resolver) Version() string {
	return r.cfg.Version
}

// Cache exposes the content cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// purgeDerived removes the derived-copy trees under every root.
func (r *Resolver) purgeDerived() {
	roots := []string{r.cfg.Root}
	for _, rule := range r.cfg.RootMap {
		if rule.Value != "" {
			roots = append(roots, rule.Value)
		}
	}
	for _, root := range roots {
		os.RemoveAll(filepath.Join(root, cacheBustDir))
		os.RemoveAll(filepath.Join(root, ssiParsedDir))
	}
}

// Resolve runs the pipeline for one request URI.
func (r *Resolver) Resolve(uri, acceptLanguage string) Resolution {
	// Fast path: a URI resolved earlier this run is served straight
	// from the cache.
	if r.cfg.CacheEnabled {
		if e, ok := r.cache.GetByURI(uri); ok {
			return Resolution{Status: http.StatusOK, Entry: e}
		}
	}

	uri = stripVersionSuffix(uri)

	if dest, ok := lookup(r.cfg.Redirects, uri); ok {
		return Resolution{Status: http.StatusMovedPermanently, RedirectURL: dest}
	}

	uri = applyAliases(r.cfg.Aliases, uri)

	// Root directory selection. The matched prefix is stripped from the
	// URI used for path construction, keeping its trailing slash as the
	// new leading slash.
	root := r.cfg.Root
	unprefixed := uri
	for _, rule := range r.cfg.RootMap {
		prefix := rule.Pattern
		if strings.HasPrefix(uri, prefix) {
			root = rule.Value
			cut := len(prefix)
			if strings.HasSuffix(prefix, "/") {
				cut--
			}
			unprefixed = uri[cut:]
			break
		}
	}
	if root == "" {
		return Resolution{Status: http.StatusNotFound}
	}

	// Localization.
	var contentLanguage string
	if strings.HasPrefix(unprefixed, langPrefix) {
		rest := unprefixed[len(langPrefix):]
		for _, lang := range languageCandidates(acceptLanguage) {
			candidate := "/" + lang + "/" + rest
			if full, err := r.pathUnderRoot(root, candidate); err == nil && isRegularFile(full) {
				unprefixed = candidate
				uri = candidate
				contentLanguage = lang
				break
			}
		}
		if contentLanguage == "" {
			unprefixed = "/" + r.cfg.DefaultLanguage + "/" + rest
			uri = unprefixed
			contentLanguage = r.cfg.DefaultLanguage
		}
	}

	// Canonicalize and contain.
	status := http.StatusOK
	filePath, err := r.pathUnderRoot(root, unprefixed)
	if err != nil {
		r.log.Warn("path escapes root", "uri", uri)
		return Resolution{Status: http.StatusNotFound, ContentLanguage: contentLanguage}
	}

	if !isRegularFile(filePath) {
		if isDirectory(filePath) {
			filePath = filepath.Join(filePath, "index.html")
		}
		if !isRegularFile(filePath) {
			if r.cfg.NotFoundFile == "" {
				return Resolution{Status: http.StatusNotFound, ContentLanguage: contentLanguage}
			}
			status = http.StatusNotFound
			uri = r.cfg.NotFoundFile
			filePath = filepath.Join(root, filepath.FromSlash(r.cfg.NotFoundFile))
		}
	}

	mimeType := mimeTypeFor(filePath)

	// Cache busting.
	if (mimeType == "text/html" || mimeType == "text/javascript") && matchAny(r.cfg.CacheBust, uri) {
		derived, err := ensureCacheBusted(root, uri, filePath, r.cfg.Version)
		if err != nil {
			r.log.Error("cache-bust transform failed", "uri", uri, "error", err)
		} else {
			filePath = derived
		}
	}

	// SSI parsing. Runs on the cache-busted copy when both apply.
	if mimeType == "text/html" && matchAny(r.cfg.SSI, uri) {
		derived, err := ensureSSIParsed(root, uri, filePath)
		if err != nil {
			r.log.Error("ssi transform failed", "uri", uri, "error", err)
		} else {
			filePath = derived
		}
	}

	cacheControl := DefaultCacheControl
	if r.cfg.CacheEnabled {
		if cc, ok := lookup(r.cfg.CacheControlRules, uri); ok {
			cacheControl = cc
		}
	}

	// Content cache.
	if r.cfg.CacheEnabled {
		if e, ok := r.cache.GetByPath(filePath); ok {
			return Resolution{Status: status, Entry: e, ContentLanguage: contentLanguage}
		}
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		r.log.Error("read failed", "path", filePath, "error", err)
		return Resolution{Status: http.StatusNotFound, ContentLanguage: contentLanguage}
	}

	entry := &Entry{
		URI:          uri,
		Path:         filePath,
		Content:      content,
		MimeType:     mimeType,
		CacheControl: cacheControl,
	}
	if r.cfg.CacheEnabled {
		r.cache.Put(entry, status == http.StatusOK)
	} else {
		entry.readers = 1
	}
	return Resolution{Status: status, Entry: entry, ContentLanguage: contentLanguage}
}

// pathUnderRoot joins a root-relative URI to root and verifies the
// canonicalized result stays inside it.
func (r *Resolver) pathUnderRoot(root, uri string) (string, error) {
	if strings.ContainsRune(uri, 0) {
		return "", ErrOutsideRoot
	}
	full := filepath.Clean(root + filepath.FromSlash(uri))
	cleanRoot := filepath.Clean(root)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}
