package fileserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Campaign tracking parameters stripped before the canonical redirect.
var utmParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term"}

// DefaultFrameSize bounds how much of a response body is written per
// frame when streaming cached content.
const DefaultFrameSize = 16 * 1024

// HandlerConfig controls the HTTP surface around the resolver.
type HandlerConfig struct {
	// Host is the canonical hostname used for campaign-parameter
	// redirects.
	Host string

	// AllowedOrigins drives CORS for simple and preflight requests.
	AllowedOrigins []OriginRule

	// PostEndpoints allow-lists POST targets by URI prefix. Empty means
	// POST is allowed everywhere a handler is mounted.
	PostEndpoints []string

	// DeleteEndpoints allow-lists DELETE targets by exact URI.
	DeleteEndpoints []string

	// MaxBodyBytes caps POST and DELETE request bodies. 0 disables
	// the cap.
	MaxBodyBytes int64

	// PostHandler and DeleteHandler receive allow-listed requests.
	PostHandler   http.Handler
	DeleteHandler http.Handler

	// FrameSize bounds per-write chunks when streaming responses.
	// Default: DefaultFrameSize.
	FrameSize int

	// Logger receives request-level warnings. Default: slog.Default().
	Logger *slog.Logger
}

// Handler serves the static surface: GET through the resolution pipeline,
// OPTIONS preflights, and allow-listed POST/DELETE dispatch.
type Handler struct {
	resolver *Resolver
	cfg      HandlerConfig
	log      *slog.Logger
}

// NewHandler wires a resolver into an HTTP handler.
func NewHandler(resolver *Resolver, cfg HandlerConfig) *Handler {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		resolver: resolver,
		cfg:      cfg,
		log:      cfg.Logger.With("component", "fileserver"),
	}
}

// ServeHTTP dispatches by method.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.serveGet(w, r)
	case http.MethodOptions:
		h.serveOptions(w, r)
	case http.MethodPost:
		h.servePost(w, r)
	case http.MethodDelete:
		h.serveDelete(w, r)
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request) {
	if target, ok := h.stripUTM(r); ok {
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		return
	}

	res := h.resolver.Resolve(r.URL.Path, r.Header.Get("Accept-Language"))

	if res.Status == http.StatusMovedPermanently {
		http.Redirect(w, r, res.RedirectURL, http.StatusMovedPermanently)
		return
	}
	if res.Entry == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	defer res.Entry.Release()

	header := w.Header()
	header.Set("Content-Length", strconv.Itoa(len(res.Entry.Content)))
	header.Set("Content-Type", res.Entry.MimeType)
	header.Set("Cache-Control", res.Entry.CacheControl)
	if res.ContentLanguage != "" {
		header.Set("Content-Language", res.ContentLanguage)
	}
	if origin, ok := allowedOrigin(h.cfg.AllowedOrigins, r.URL.Path, r.Header.Get("Origin")); ok {
		header.Set("Access-Control-Allow-Origin", origin)
	}
	w.WriteHeader(res.Status)

	if r.Method == http.MethodHead {
		return
	}
	h.stream(w, res.Entry.Content)
}

// stream writes content in bounded frames, flushing between writes so
// large bodies make progress without a full in-memory copy per write.
func (h *Handler) stream(w http.ResponseWriter, content []byte) {
	flusher, _ := w.(http.Flusher)
	for at := 0; at < len(content); at += h.cfg.FrameSize {
		end := at + h.cfg.FrameSize
		if end > len(content) {
			end = len(content)
		}
		if _, err := w.Write(content[at:end]); err != nil {
			return
		}
		if flusher != nil && end < len(content) {
			flusher.Flush()
		}
	}
}

func (h *Handler) serveOptions(w http.ResponseWriter, r *http.Request) {
	methods := "OPTIONS, GET"
	if h.cfg.PostHandler != nil {
		methods += ", POST"
	}
	if h.cfg.DeleteHandler != nil {
		methods += ", DELETE"
	}

	origin, ok := allowedOrigin(h.cfg.AllowedOrigins, r.URL.Path, r.Header.Get("Origin"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	header := w.Header()
	header.Set("Access-Control-Allow-Origin", origin)
	header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Content-Length, Cache-Control")
	header.Set("Access-Control-Allow-Methods", methods)
	header.Set("Access-Control-Allow-Credentials", "true")
	header.Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) servePost(w http.ResponseWriter, r *http.Request) {
	if h.cfg.PostHandler == nil {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	allowed := len(h.cfg.PostEndpoints) == 0
	for _, prefix := range h.cfg.PostEndpoints {
		if strings.HasPrefix(r.URL.Path, prefix) {
			allowed = true
			break
		}
	}
	if !allowed {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if h.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	}
	h.cfg.PostHandler.ServeHTTP(w, r)
}

func (h *Handler) serveDelete(w http.ResponseWriter, r *http.Request) {
	if h.cfg.DeleteHandler == nil {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	allowed := len(h.cfg.DeleteEndpoints) == 0
	for _, uri := range h.cfg.DeleteEndpoints {
		if r.URL.Path == uri {
			allowed = true
			break
		}
	}
	if !allowed {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if h.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	}
	h.cfg.DeleteHandler.ServeHTTP(w, r)
}

// stripUTM reports whether the request carries campaign tracking
// parameters and, if so, returns the canonical URL with them removed.
func (h *Handler) stripUTM(r *http.Request) (string, bool) {
	query := r.URL.Query()
	found := false
	for _, p := range utmParams {
		if query.Has(p) {
			h.log.Info("campaign visit", "param", p, "value", query.Get(p), "uri", r.URL.Path)
			query.Del(p)
			found = true
		}
	}
	if !found {
		return "", false
	}

	target := url.URL{Scheme: "https", Host: h.cfg.Host, Path: r.URL.Path, RawQuery: query.Encode()}
	return target.String(), true
}
