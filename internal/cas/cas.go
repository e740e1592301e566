// Package cas stores rendered pages by content hash, zstd-compressed and
// sharded by the first two hex digits.
package cas

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const suffix = ".md.zst"

// Store is a content-addressable store rooted at a directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the CAS directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Hash returns the key content is stored under.
func Hash(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

// path returns the sharded file path for a hash: <dir>/<first2>/<rest>.md.zst
func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash[2:]+suffix)
}

// Write stores content in the CAS, returning its SHA-256 hash.
// If the content already exists, this is a no-op.
func (s *Store) Write(content string) (string, error) {
	hash := Hash(content)

	p := s.path(hash)
	if _, err := os.Stat(p); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("creating CAS directory: %w", err)
	}

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return "", fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		w.Close()
		return "", fmt.Errorf("compressing CAS content: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing zstd writer: %w", err)
	}

	// Write then rename so concurrent readers never see a partial file.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing CAS file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", fmt.Errorf("writing CAS file: %w", err)
	}
	return hash, nil
}

// Read retrieves content from the CAS by hash.
func (s *Store) Read(hash string) (string, error) {
	if len(hash) < 3 {
		return "", fmt.Errorf("invalid CAS hash %q", hash)
	}
	f, err := os.Open(s.path(hash))
	if err != nil {
		return "", fmt.Errorf("reading CAS file %s: %w", hash, err)
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompressing CAS file %s: %w", hash, err)
	}
	return string(data), nil
}

// Has reports whether hash is stored.
func (s *Store) Has(hash string) bool {
	if len(hash) < 3 {
		return false
	}
	_, err := os.Stat(s.path(hash))
	return err == nil
}

// Prune removes every entry whose hash keep does not report as live and
// returns how many were removed.
func (s *Store) Prune(keep func(hash string) bool) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, suffix) {
			return nil
		}
		hash := filepath.Base(filepath.Dir(p)) + strings.TrimSuffix(d.Name(), suffix)
		if keep(hash) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("pruning CAS: %w", err)
	}
	return removed, nil
}
