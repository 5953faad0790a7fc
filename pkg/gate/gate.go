package gate

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Area describes one gated URI subtree. The JSON tags match the area
// object serialized into the login page's client configuration.
type Area struct {
	// ID names the area in cookie names and login URLs.
	ID string `json:"id"`

	// Name is the human-readable title shown on the login page.
	Name string `json:"name"`

	// Prefix is the URI prefix the area protects.
	Prefix string `json:"prefix"`

	// Image is an optional logo path for the login page.
	Image string `json:"image,omitempty"`

	// Home is the optional in-area landing path.
	Home string `json:"home,omitempty"`

	// Terms is an optional terms-of-service URL.
	Terms string `json:"terms,omitempty"`
}

// Config configures a Gate.
type Config struct {
	// Host is the hostname used in login redirect URLs.
	Host string

	// GoogleClientID is passed to the login page's client config.
	GoogleClientID string

	// Areas are matched by prefix in order; the first match wins.
	Areas []Area

	// Root is the served-files directory holding the login template at
	// gatekeepr/gatekeepr.html.
	Root string

	// Version is the cache-bust version stamped into the login page.
	Version string

	// Logger receives gate activity. Default: slog.Default().
	Logger *slog.Logger
}

// Gate enforces session-gated access in front of another handler.
type Gate struct {
	cfg   Config
	store *Store
	log   *slog.Logger
}

// loginPathPrefix is where login pages are served from.
const loginPathPrefix = "/gk/"

// New creates a Gate backed by the given session store.
func New(cfg Config, store *Store) *Gate {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gate{
		cfg:   cfg,
		store: store,
		log:   cfg.Logger.With("component", "gate"),
	}
}

// CookieName returns the session cookie name for an area.
func CookieName(areaID string) string {
	return "gatekeepr_" + areaID
}

// AreaForURI returns the first area whose prefix matches the URI.
func (g *Gate) AreaForURI(uri string) (*Area, bool) {
	for i := range g.cfg.Areas {
		if strings.HasPrefix(uri, g.cfg.Areas[i].Prefix) {
			return &g.cfg.Areas[i], true
		}
	}
	return nil, false
}

// AreaByID returns the area with the given id.
func (g *Gate) AreaByID(id string) (*Area, bool) {
	for i := range g.cfg.Areas {
		if g.cfg.Areas[i].ID == id {
			return &g.cfg.Areas[i], true
		}
	}
	return nil, false
}

// Middleware wraps next with gated-area enforcement. Login pages under
// /gk/ are served directly; requests into a gated area pass through only
// with a valid session cookie, everything else is untouched.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, loginPathPrefix) {
			g.serveLogin(w, r)
			return
		}

		area, gated := g.AreaForURI(r.URL.Path)
		if !gated {
			next.ServeHTTP(w, r)
			return
		}

		if g.authorize(r, area) {
			next.ServeHTTP(w, r)
			return
		}
		g.redirectToLogin(w, r, area)
	})
}

// authorize checks the area's session cookie against the store, purging
// stale sessions first and touching the session's last use on success.
func (g *Gate) authorize(r *http.Request, area *Area) bool {
	cookie, err := r.Cookie(CookieName(area.ID))
	if err != nil || cookie.Value == "" {
		return false
	}

	ctx := r.Context()
	if err := g.store.PurgeStale(ctx); err != nil {
		g.log.Error("session purge failed", "area", area.ID, "error", err)
		return false
	}

	ok, err := g.store.Authorize(ctx, area.ID, cookie.Value)
	if err != nil {
		g.log.Error("authorization query failed", "area", area.ID, "error", err)
		return false
	}
	if !ok {
		return false
	}

	if err := g.store.Touch(ctx, cookie.Value); err != nil {
		g.log.Warn("session touch failed", "area", area.ID, "error", err)
	}
	return true
}

// redirectToLogin sends a 302 to the area's login endpoint with the
// original URI as the return parameter, clearing any session cookie the
// client still holds.
func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request, area *Area) {
	http.SetCookie(w, &http.Cookie{
		Name:    CookieName(area.ID),
		Value:   "",
		Path:    "/",
		Expires: time.Unix(1, 0),
	})

	ret := r.URL.Query().Get("redirect")
	if ret == "" {
		ret = r.URL.Path
	}

	location := "https://" + g.cfg.Host + loginPathPrefix + area.ID +
		"?redirect=" + url.QueryEscape(ret)
	http.Redirect(w, r, location, http.StatusFound)
}
