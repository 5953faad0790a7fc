package fileserver

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T, mutate func(*Config)) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "/index.html", "<html>home</html>")
	writeFile(t, root, "/about.html", "<html>about</html>")
	writeFile(t, root, "/404.html", "<html>lost</html>")
	writeFile(t, root, "/docs/index.html", "<html>docs</html>")

	cfg := Config{
		Root:         root,
		NotFoundFile: "/404.html",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewResolver(cfg), root
}

func mustRelease(t *testing.T, res Resolution) {
	t.Helper()
	if res.Entry != nil {
		res.Entry.Release()
	}
}

func TestResolveServesFile(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	res := r.Resolve("/about.html", "")
	defer mustRelease(t, res)

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d", res.Status)
	}
	if string(res.Entry.Content) != "<html>about</html>" {
		t.Errorf("Content = %q", res.Entry.Content)
	}
	if res.Entry.MimeType != "text/html" {
		t.Errorf("MimeType = %q", res.Entry.MimeType)
	}
	if res.Entry.CacheControl != DefaultCacheControl {
		t.Errorf("CacheControl = %q", res.Entry.CacheControl)
	}
}

func TestResolveDirectoryIndex(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	res := r.Resolve("/docs", "")
	defer mustRelease(t, res)

	if res.Status != http.StatusOK || string(res.Entry.Content) != "<html>docs</html>" {
		t.Fatalf("directory did not resolve to index.html: %+v", res)
	}
}

func TestResolveNotFoundDocument(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	res := r.Resolve("/missing.html", "")
	defer mustRelease(t, res)

	if res.Status != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", res.Status)
	}
	if res.Entry == nil || string(res.Entry.Content) != "<html>lost</html>" {
		t.Fatal("404 document not served")
	}
}

func TestResolveBare404WithoutDocument(t *testing.T) {
	r, _ := newTestResolver(t, func(c *Config) { c.NotFoundFile = "" })
	res := r.Resolve("/missing.html", "")
	if res.Status != http.StatusNotFound || res.Entry != nil {
		t.Fatalf("want bare 404, got %+v", res)
	}
}

func TestResolveContainment(t *testing.T) {
	r, _ := newTestResolver(t, func(c *Config) { c.NotFoundFile = "" })
	for _, uri := range []string{
		"/../secret",
		"/docs/../../secret",
		"/..",
		"/\x00/index.html",
	} {
		res := r.Resolve(uri, "")
		if res.Status != http.StatusNotFound || res.Entry != nil {
			t.Errorf("Resolve(%q) = %+v, want bare 404", uri, res)
		}
	}
}

func TestResolveVersionSuffixStripped(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	res := r.Resolve("/about.html-v2026.08.28.10.30.05", "")
	defer mustRelease(t, res)
	if res.Status != http.StatusOK || string(res.Entry.Content) != "<html>about</html>" {
		t.Fatalf("versioned URI not served: %+v", res)
	}
}

func TestResolveRedirect(t *testing.T) {
	r, _ := newTestResolver(t, func(c *Config) {
		c.Redirects = []Rule{{Pattern: "/old", Value: "https://example.com/new"}}
	})
	res := r.Resolve("/old", "")
	if res.Status != http.StatusMovedPermanently || res.RedirectURL != "https://example.com/new" {
		t.Fatalf("redirect: %+v", res)
	}

	// Redirects are exact: a longer URI falls through.
	res = r.Resolve("/old/page", "")
	defer mustRelease(t, res)
	if res.Status == http.StatusMovedPermanently {
		t.Error("prefix of redirect pattern redirected")
	}
}

func TestResolveAlias(t *testing.T) {
	r, _ := newTestResolver(t, func(c *Config) {
		c.Aliases = []Rule{{Pattern: "/", Value: "/index.html"}}
	})
	res := r.Resolve("/", "")
	defer mustRelease(t, res)
	if res.Status != http.StatusOK || string(res.Entry.Content) != "<html>home</html>" {
		t.Fatalf("alias: %+v", res)
	}
}

func TestResolveRootMap(t *testing.T) {
	altRoot := t.TempDir()
	r, _ := newTestResolver(t, func(c *Config) {
		c.RootMap = []Rule{
			{Pattern: "/blog/", Value: altRoot},
			{Pattern: "/dead/", Value: ""},
		}
	})
	writeFile(t, altRoot, "/post.html", "<html>post</html>")

	res := r.Resolve("/blog/post.html", "")
	defer mustRelease(t, res)
	if res.Status != http.StatusOK || string(res.Entry.Content) != "<html>post</html>" {
		t.Fatalf("root map: %+v", res)
	}

	// An empty root disables the subtree outright.
	res = r.Resolve("/dead/anything", "")
	if res.Status != http.StatusNotFound || res.Entry != nil {
		t.Fatalf("empty root: %+v", res)
	}
}

func TestResolveLocalization(t *testing.T) {
	r, root := newTestResolver(t, func(c *Config) { c.DefaultLanguage = "en" })
	writeFile(t, root, "/en/hello.html", "<html>hello</html>")
	writeFile(t, root, "/pt/hello.html", "<html>ola</html>")

	t.Run("first candidate with a file wins", func(t *testing.T) {
		res := r.Resolve("/$lang/hello.html", "fr-FR, pt;q=0.8, en;q=0.5")
		defer mustRelease(t, res)
		if res.ContentLanguage != "pt" {
			t.Fatalf("ContentLanguage = %q, want pt", res.ContentLanguage)
		}
		if string(res.Entry.Content) != "<html>ola</html>" {
			t.Errorf("Content = %q", res.Entry.Content)
		}
	})

	t.Run("falls back to default language", func(t *testing.T) {
		res := r.Resolve("/$lang/hello.html", "fr-FR, de")
		defer mustRelease(t, res)
		if res.ContentLanguage != "en" {
			t.Fatalf("ContentLanguage = %q, want en", res.ContentLanguage)
		}
		if string(res.Entry.Content) != "<html>hello</html>" {
			t.Errorf("Content = %q", res.Entry.Content)
		}
	})

	t.Run("no header uses default", func(t *testing.T) {
		res := r.Resolve("/$lang/hello.html", "")
		defer mustRelease(t, res)
		if res.ContentLanguage != "en" {
			t.Fatalf("ContentLanguage = %q, want en", res.ContentLanguage)
		}
	})
}

func TestResolveCacheBustAndSSI(t *testing.T) {
	r, root := newTestResolver(t, func(c *Config) {
		c.CacheBust = []Rule{{Pattern: "/app.js"}}
		c.SSI = []Rule{{Pattern: "/page.html"}}
		c.Version = "-v2026.08.28.10.30.05"
	})
	writeFile(t, root, "/app.js", `import "/lib.js`+VersionPlaceholder+`";`)
	writeFile(t, root, "/nav.html", "<nav/>")
	writeFile(t, root, "/page.html", `<html><!--#include virtual="/nav.html"--></html>`)

	res := r.Resolve("/app.js", "")
	defer mustRelease(t, res)
	if want := `import "/lib.js-v2026.08.28.10.30.05";`; string(res.Entry.Content) != want {
		t.Errorf("cache-busted content = %q, want %q", res.Entry.Content, want)
	}

	res2 := r.Resolve("/page.html", "")
	defer mustRelease(t, res2)
	if string(res2.Entry.Content) != "<html><nav/></html>" {
		t.Errorf("ssi content = %q", res2.Entry.Content)
	}
}

func TestResolveCacheControlRules(t *testing.T) {
	r, root := newTestResolver(t, func(c *Config) {
		c.CacheEnabled = true
		c.CacheControlRules = []Rule{
			{Pattern: "/static/*", Value: "public, max-age=31536000"},
			{Pattern: "*.html", Value: "max-age=600"},
		}
	})
	writeFile(t, root, "/static/app.css", "body{}")

	res := r.Resolve("/static/app.css", "")
	defer mustRelease(t, res)
	if res.Entry.CacheControl != "public, max-age=31536000" {
		t.Errorf("CacheControl = %q", res.Entry.CacheControl)
	}

	res2 := r.Resolve("/about.html", "")
	defer mustRelease(t, res2)
	if res2.Entry.CacheControl != "max-age=600" {
		t.Errorf("CacheControl = %q", res2.Entry.CacheControl)
	}
}

func TestResolveCachingReuse(t *testing.T) {
	r, root := newTestResolver(t, func(c *Config) { c.CacheEnabled = true })

	res1 := r.Resolve("/about.html", "")
	if res1.Entry.Readers() != 1 {
		t.Fatalf("readers = %d, want 1", res1.Entry.Readers())
	}

	// Second resolve hits the cache: same entry, source no longer read.
	os.Remove(filepath.Join(root, "about.html"))
	res2 := r.Resolve("/about.html", "")
	if res2.Entry != res1.Entry {
		t.Fatal("cache miss on second resolve")
	}
	if res2.Entry.Readers() != 2 {
		t.Fatalf("readers = %d, want 2", res2.Entry.Readers())
	}
	res1.Entry.Release()
	res2.Entry.Release()
}

func TestResolveCacheDisabledRereads(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	res1 := r.Resolve("/about.html", "")
	res2 := r.Resolve("/about.html", "")
	if res1.Entry == res2.Entry {
		t.Fatal("entries shared with caching disabled")
	}
	mustRelease(t, res1)
	mustRelease(t, res2)
}

func TestNewResolverPurgesDerivedWhenCacheDisabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "/.cache-bust/app.js", "stale")
	writeFile(t, root, "/.ssi-parsed/page.html", "stale")

	NewResolver(Config{Root: root, CacheEnabled: false})

	if _, err := os.Stat(filepath.Join(root, ".cache-bust")); !os.IsNotExist(err) {
		t.Error("/.cache-bust not purged")
	}
	if _, err := os.Stat(filepath.Join(root, ".ssi-parsed")); !os.IsNotExist(err) {
		t.Error("/.ssi-parsed not purged")
	}
}

func TestNewResolverKeepsDerivedWhenCacheEnabled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "/.cache-bust/app.js", "kept")

	NewResolver(Config{Root: root, CacheEnabled: true})

	if _, err := os.Stat(filepath.Join(root, ".cache-bust", "app.js")); err != nil {
		t.Error("/.cache-bust purged with caching enabled")
	}
}
