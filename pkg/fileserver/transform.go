package fileserver

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Derived-copy directories created under a served-files root.
const (
	cacheBustDir = "/.cache-bust"
	ssiParsedDir = "/.ssi-parsed"
)

var (
	ssiOpen  = []byte(`<!--#include virtual="`)
	ssiClose = []byte(`"-->`)
)

// ensureCacheBusted materializes the cache-busted copy of srcPath under
// root/.cache-bust/<uri>, substituting the run version for every
// occurrence of the version placeholder. The copy is computed once; later
// calls find it on disk and reuse it.
func ensureCacheBusted(root, uri, srcPath, version string) (string, error) {
	derived := filepath.Join(root, cacheBustDir, filepath.FromSlash(uri))
	if isRegularFile(derived) {
		return derived, nil
	}

	content, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}
	content = bytes.ReplaceAll(content, []byte(VersionPlaceholder), []byte(version))

	if err := writeDerived(derived, content); err != nil {
		return "", err
	}
	return derived, nil
}

// ensureSSIParsed materializes the include-expanded copy of srcPath under
// root/.ssi-parsed/<uri>. Expansion is a single pass: included content is
// inserted verbatim and not rescanned for further directives.
func ensureSSIParsed(root, uri, srcPath string) (string, error) {
	derived := filepath.Join(root, ssiParsedDir, filepath.FromSlash(uri))
	if isRegularFile(derived) {
		return derived, nil
	}

	content, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}

	if err := writeDerived(derived, expandIncludes(root, content)); err != nil {
		return "", err
	}
	return derived, nil
}

// expandIncludes replaces every well-formed <!--#include virtual="path"-->
// directive with the referenced file's content, resolved relative to root.
// Unterminated directives and unreadable or root-escaping include paths
// are left literally in place.
func expandIncludes(root string, src []byte) []byte {
	var out bytes.Buffer
	for {
		i := bytes.Index(src, ssiOpen)
		if i < 0 {
			out.Write(src)
			break
		}
		out.Write(src[:i])

		rest := src[i+len(ssiOpen):]
		j := bytes.Index(rest, ssiClose)
		if j < 0 {
			out.Write(src[i:])
			break
		}

		virtual := string(rest[:j])
		if body, err := readUnderRoot(root, virtual); err == nil {
			out.Write(body)
		} else {
			out.Write(src[i : i+len(ssiOpen)+j+len(ssiClose)])
		}
		src = rest[j+len(ssiClose):]
	}
	return out.Bytes()
}

// readUnderRoot reads a file addressed by a root-relative virtual path,
// refusing paths that canonicalize outside the root.
func readUnderRoot(root, virtual string) ([]byte, error) {
	full := filepath.Clean(filepath.Join(root, filepath.FromSlash(virtual)))
	cleanRoot := filepath.Clean(root)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return nil, ErrOutsideRoot
	}
	return os.ReadFile(full)
}

func writeDerived(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
