package upload

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DiskStore stores uploads in a local directory. Each file gets a JSON
// sidecar with its recorded content type so Open can restore it.
type DiskStore struct {
	dir     string
	maxSize int64
}

type diskMeta struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates the directory if needed. maxSize of 0 means no
// per-file limit beyond what the handler enforces.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Save streams the body to disk under name.
func (s *DiskStore) Save(ctx context.Context, name, contentType string, r io.Reader) (int64, error) {
	dst := filepath.Join(s.dir, name)

	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, src)
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(dst)
		return 0, ErrTooLarge
	}

	meta, err := json.Marshal(diskMeta{
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	if err := os.WriteFile(s.metaPath(name), meta, 0o644); err != nil {
		os.Remove(dst)
		return 0, err
	}
	return written, nil
}

// Open returns the stored file. The content type falls back to
// application/octet-stream when the sidecar is missing.
func (s *DiskStore) Open(ctx context.Context, name string) (*File, error) {
	p := filepath.Join(s.dir, name)

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	meta := diskMeta{ContentType: "application/octet-stream"}
	if raw, err := os.ReadFile(s.metaPath(name)); err == nil {
		json.Unmarshal(raw, &meta)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{
		Name:        name,
		ContentType: meta.ContentType,
		Size:        info.Size(),
		Path:        p,
		Reader:      f,
	}, nil
}

// Cleanup removes files and sidecars older than maxAge.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
	return nil
}

func (s *DiskStore) metaPath(name string) string {
	return filepath.Join(s.dir, name+".meta")
}
