package fileserver

import "sync"

// Entry is a file loaded into memory together with the headers it is
// served with. Readers is a counted handle: every connection streaming the
// entry holds one reference and releases it exactly once at teardown.
// Content is dropped only when the entry has been invalidated and the
// last reader is gone.
type Entry struct {
	URI          string
	Path         string
	Content      []byte
	MimeType     string
	CacheControl string

	mu          sync.Mutex
	readers     int
	invalidated bool
}

// acquire adds a reader reference. Fails once the entry is invalidated.
func (e *Entry) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.invalidated {
		return ErrEntryInvalidated
	}
	e.readers++
	return nil
}

// Release drops one reader reference. The last release of an invalidated
// entry frees the content.
func (e *Entry) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.readers > 0 {
		e.readers--
	}
	if e.invalidated && e.readers == 0 {
		e.Content = nil
	}
}

// Readers returns the current reader count.
func (e *Entry) Readers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readers
}

// invalidate marks the entry dead. Content survives until the last
// reader releases it.
func (e *Entry) invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidated = true
	if e.readers == 0 {
		e.Content = nil
	}
}

// Cache maps resolved file paths to loaded entries. A secondary index by
// transformed URI serves the fast path that skips the rewrite pipeline
// for URIs already resolved during this run.
type Cache struct {
	mu     sync.Mutex
	byPath map[string]*Entry
	byURI  map[string]*Entry

	// maxEntryBytes caps the size of a cacheable file; 0 means no cap.
	maxEntryBytes int64
}

// NewCache creates an empty cache with the given per-entry size ceiling.
func NewCache(maxEntryBytes int64) *Cache {
	return &Cache{
		byPath:        make(map[string]*Entry),
		byURI:         make(map[string]*Entry),
		maxEntryBytes: maxEntryBytes,
	}
}

// GetByPath returns the cached entry for a resolved path with a reader
// reference already acquired.
func (c *Cache) GetByPath(path string) (*Entry, bool) {
	c.mu.Lock()
	e, ok := c.byPath[path]
	c.mu.Unlock()
	if !ok || e.acquire() != nil {
		return nil, false
	}
	return e, true
}

// GetByURI returns the cached entry for a transformed URI with a reader
// reference already acquired.
func (c *Cache) GetByURI(uri string) (*Entry, bool) {
	c.mu.Lock()
	e, ok := c.byURI[uri]
	c.mu.Unlock()
	if !ok || e.acquire() != nil {
		return nil, false
	}
	return e, true
}

// Put stores an entry if its content fits the per-entry ceiling, and
// returns it with one reader reference held by the caller. Oversized
// entries are handed back unstored; indexURI controls whether the
// fast-path index learns the entry's URI.
func (c *Cache) Put(e *Entry, indexURI bool) (stored bool) {
	e.readers = 1
	if c.maxEntryBytes > 0 && int64(len(e.Content)) > c.maxEntryBytes {
		return false
	}

	c.mu.Lock()
	c.byPath[e.Path] = e
	if indexURI {
		c.byURI[e.URI] = e
	}
	c.mu.Unlock()
	return true
}

// Invalidate removes the entry for a path. Readers still streaming it
// keep the content alive until their release.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	e, ok := c.byPath[path]
	if ok {
		delete(c.byPath, path)
		delete(c.byURI, e.URI)
	}
	c.mu.Unlock()
	if ok {
		e.invalidate()
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byPath)
}
