package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// Store is the interface for upload storage backends.
type Store interface {
	// Save stores the body under name and returns the byte count.
	Save(ctx context.Context, name, contentType string, r io.Reader) (int64, error)

	// Open retrieves a stored file. The caller closes the returned
	// File when done.
	Open(ctx context.Context, name string) (*File, error)

	// Cleanup removes files older than maxAge. Call it periodically.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is a stored upload.
type File struct {
	// Name is the generated storage name (file id plus extension).
	Name string

	// ContentType is the MIME type recorded at upload time.
	ContentType string

	// Size is the stored size in bytes.
	Size int64

	// Path is the local filesystem path when the backend is DiskStore.
	Path string

	// URL is a retrieval URL when the backend provides one.
	URL string

	// Reader streams the contents.
	Reader io.ReadCloser
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// SessionChecker reports whether a WebSocket session is currently live.
// Wire it to the connection registry.
type SessionChecker func(sessionID string) bool

// Config holds configuration for the upload handler.
type Config struct {
	// MaxFileSize is the maximum accepted body size in bytes.
	// Default: 10 MiB.
	MaxFileSize int64

	// Logger receives upload logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with defaults filled in.
func DefaultConfig() *Config {
	return &Config{MaxFileSize: 10 << 20}
}

// Handler serves POST /uploads/<sessionID>?file_name=<original name>
// with default configuration.
func Handler(store Store, sessions SessionChecker) http.Handler {
	return HandlerWithConfig(store, sessions, DefaultConfig())
}

// HandlerWithConfig serves uploads with custom configuration. The raw
// request body is the file content; no multipart framing. Uploads for
// sessions the checker does not recognize are refused with 404 before
// the body is read.
func HandlerWithConfig(store Store, sessions SessionChecker, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultConfig().MaxFileSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "upload")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/uploads/"), "/")
		if sessionID == "" || strings.Contains(sessionID, "/") {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if sessions == nil || !sessions(sessionID) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		fileName := r.URL.Query().Get("file_name")
		if fileName == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		fileID := generateFileID()
		ext := strings.ToLower(path.Ext(path.Base(fileName)))

		body := http.MaxBytesReader(w, r.Body, maxSize)
		size, err := store.Save(r.Context(), fileID+ext, r.Header.Get("Content-Type"), body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.Is(err, ErrTooLarge) || errors.As(err, &maxErr) {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			log.Error("upload store failed", "session", sessionID, "file", fileID+ext, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		log.Info("upload stored",
			"session", sessionID, "file", fileID+ext, "name", fileName, "bytes", size)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"file_id":   fileID,
			"extension": ext,
		})
	})
}

// generateFileID produces a random storage id.
func generateFileID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return "file_" + hex.EncodeToString(b)
}
