package gate

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, opts...)
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return store, db
}

func insertSession(t *testing.T, db *sql.DB, userID, sessionID, area string, expiration, lastUse time.Time) {
	t.Helper()
	if _, err := db.Exec(`INSERT OR IGNORE INTO users (id, email) VALUES (?, ?)`,
		userID, userID+"@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(
		`INSERT INTO sessions (id, userId, gatedArea, expirationDate, lastUseDate) VALUES (?, ?, ?, ?, ?)`,
		sessionID, userID, area, expiration.Unix(), lastUse.Unix()); err != nil {
		t.Fatal(err)
	}
}

func countSessions(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestStorePurgeStale(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store, db := newTestStore(t, WithNowFunc(func() time.Time { return now }))

	// Live, expired, and idle sessions.
	insertSession(t, db, "u1", "live", "admin", now.Add(time.Hour), now.Add(-time.Minute))
	insertSession(t, db, "u1", "expired", "admin", now.Add(-time.Minute), now.Add(-time.Minute))
	insertSession(t, db, "u1", "idle", "admin", now.Add(time.Hour), now.Add(-DefaultInactivityTimeout))

	if err := store.PurgeStale(context.Background()); err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if n := countSessions(t, db); n != 1 {
		t.Fatalf("sessions after purge = %d, want 1", n)
	}

	var id string
	if err := db.QueryRow(`SELECT id FROM sessions`).Scan(&id); err != nil {
		t.Fatal(err)
	}
	if id != "live" {
		t.Errorf("surviving session = %q, want live", id)
	}
}

func TestStorePurgeBoundary(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store, db := newTestStore(t, WithNowFunc(func() time.Time { return now }))

	// A session expiring exactly now is already gone; one last used
	// exactly one timeout ago is too.
	insertSession(t, db, "u1", "atExpiry", "a", now, now)
	insertSession(t, db, "u1", "atIdle", "a", now.Add(time.Hour), now.Add(-DefaultInactivityTimeout))

	if err := store.PurgeStale(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := countSessions(t, db); n != 0 {
		t.Fatalf("sessions after purge = %d, want 0", n)
	}
}

func TestStoreAuthorize(t *testing.T) {
	now := time.Now()
	store, db := newTestStore(t)
	insertSession(t, db, "u1", "s1", "admin", now.Add(time.Hour), now)

	ctx := context.Background()
	tests := []struct {
		name   string
		area   string
		cookie string
		want   bool
	}{
		{"valid", "admin", "u1.s1", true},
		{"wrong area", "other", "u1.s1", false},
		{"wrong user", "admin", "u2.s1", false},
		{"wrong session", "admin", "u1.s2", false},
		{"garbage", "admin", "nonsense", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Authorize(ctx, tt.area, tt.cookie)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorize(%q, %q) = %v, want %v", tt.area, tt.cookie, got, tt.want)
			}
		})
	}
}

func TestStoreTouch(t *testing.T) {
	then := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	later := then.Add(10 * time.Minute)
	now := then
	store, db := newTestStore(t, WithNowFunc(func() time.Time { return now }))
	insertSession(t, db, "u1", "s1", "admin", then.Add(time.Hour), then)

	now = later
	if err := store.Touch(context.Background(), "u1.s1"); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	var lastUse int64
	if err := db.QueryRow(`SELECT lastUseDate FROM sessions WHERE id = 's1'`).Scan(&lastUse); err != nil {
		t.Fatal(err)
	}
	if lastUse != later.Unix() {
		t.Errorf("lastUseDate = %d, want %d", lastUse, later.Unix())
	}
}

func newTestGate(t *testing.T, store *Store) (*Gate, string) {
	t.Helper()
	root := t.TempDir()
	tmpl := `<html><head><title><!--TITLE GOES HERE--></title>` +
		`<script>/*GATEKEEPR CONFIG GOES HERE*/</script></head>` +
		`<body data-area="AREA ID GOES HERE" data-home="HOME PATH GOES HERE">` +
		`<img src="LOGO PATH GOES HERE"><a href="TERMS URL GOES HERE">terms</a>` +
		`<script src="/gk.js-v0000.00.00.00.00.00"></script></body></html>`
	dir := filepath.Join(root, "gatekeepr")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gatekeepr.html"), []byte(tmpl), 0o644); err != nil {
		t.Fatal(err)
	}

	g := New(Config{
		Host:           "example.com",
		GoogleClientID: "google-123",
		Root:           root,
		Version:        "-v2026.08.28.10.30.05",
		Areas: []Area{
			{ID: "admin", Name: "Admin Area", Prefix: "/admin/", Image: "/logo.png", Home: "/admin/home", Terms: "https://example.com/terms"},
		},
	}, store)
	return g, root
}

func okHandler() (http.Handler, *bool) {
	called := new(bool)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}), called
}

func TestMiddlewareUngatedPassesThrough(t *testing.T) {
	store, _ := newTestStore(t)
	g, _ := newTestGate(t, store)
	next, called := okHandler()

	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public/page", nil))
	if !*called || rec.Code != http.StatusOK {
		t.Fatalf("ungated request blocked: %d", rec.Code)
	}
}

func TestMiddlewareValidSessionPasses(t *testing.T) {
	now := time.Now()
	store, db := newTestStore(t)
	insertSession(t, db, "u1", "s1", "admin", now.Add(time.Hour), now)
	g, _ := newTestGate(t, store)
	next, called := okHandler()

	req := httptest.NewRequest(http.MethodGet, "/admin/panel", nil)
	req.AddCookie(&http.Cookie{Name: CookieName("admin"), Value: "u1.s1"})
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, req)

	if !*called || rec.Code != http.StatusOK {
		t.Fatalf("valid session rejected: %d", rec.Code)
	}
}

func TestMiddlewareMissingCookieRedirects(t *testing.T) {
	store, _ := newTestStore(t)
	g, _ := newTestGate(t, store)
	next, called := okHandler()

	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/panel", nil))

	if *called {
		t.Fatal("gated handler reached without session")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Scheme != "https" || loc.Host != "example.com" || loc.Path != "/gk/admin" {
		t.Errorf("Location = %s", loc)
	}
	if got := loc.Query().Get("redirect"); got != "/admin/panel" {
		t.Errorf("redirect param = %q", got)
	}

	// The clearing cookie expires in the past.
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName("admin") {
		t.Fatalf("cookies = %v", cookies)
	}
	if cookies[0].Value != "" || !cookies[0].Expires.Before(time.Now()) {
		t.Errorf("clearing cookie = %v", cookies[0])
	}
}

func TestMiddlewareExpiredSessionRedirects(t *testing.T) {
	now := time.Now()
	store, db := newTestStore(t)
	insertSession(t, db, "u1", "s1", "admin", now.Add(-time.Minute), now)
	g, _ := newTestGate(t, store)
	next, called := okHandler()

	req := httptest.NewRequest(http.MethodGet, "/admin/panel", nil)
	req.AddCookie(&http.Cookie{Name: CookieName("admin"), Value: "u1.s1"})
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, req)

	if *called || rec.Code != http.StatusFound {
		t.Fatalf("expired session admitted: %d", rec.Code)
	}
	// The lazy purge removed the row.
	if n := countSessions(t, db); n != 0 {
		t.Errorf("sessions after access = %d, want 0", n)
	}
}

func TestMiddlewareTouchesLastUse(t *testing.T) {
	then := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	later := then.Add(30 * time.Minute)
	now := then
	store, db := newTestStore(t, WithNowFunc(func() time.Time { return now }))
	insertSession(t, db, "u1", "s1", "admin", then.Add(2*time.Hour), then)
	g, _ := newTestGate(t, store)
	next, _ := okHandler()

	now = later
	req := httptest.NewRequest(http.MethodGet, "/admin/panel", nil)
	req.AddCookie(&http.Cookie{Name: CookieName("admin"), Value: "u1.s1"})
	g.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

	var lastUse int64
	if err := db.QueryRow(`SELECT lastUseDate FROM sessions WHERE id = 's1'`).Scan(&lastUse); err != nil {
		t.Fatal(err)
	}
	if lastUse != later.Unix() {
		t.Errorf("lastUseDate = %d, want %d", lastUse, later.Unix())
	}
}

func TestServeLogin(t *testing.T) {
	store, _ := newTestStore(t)
	g, _ := newTestGate(t, store)
	next, _ := okHandler()

	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gk/admin", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Admin Area</title>",
		`"server":"example.com"`,
		`"googleClientId":"google-123"`,
		`"id":"admin"`,
		`data-area="admin"`,
		`data-home="/admin/home"`,
		`src="/logo.png"`,
		`href="https://example.com/terms"`,
		"/gk.js-v2026.08.28.10.30.05",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("login page missing %q", want)
		}
	}
	if strings.Contains(body, "GOES HERE") || strings.Contains(body, "-v0000.") {
		t.Error("unsubstituted placeholder in login page")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestServeLoginUnknownArea(t *testing.T) {
	store, db := newTestStore(t)
	// Poison the sessions table so any store access would error loudly
	// if the 404 path touched it.
	if _, err := db.Exec(`DROP TABLE sessions`); err != nil {
		t.Fatal(err)
	}
	g, _ := newTestGate(t, store)
	next, _ := okHandler()

	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gk/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
