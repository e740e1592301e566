package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

func cachePath(dir, project string) string {
	return filepath.Join(dir, project+".json.zst")
}

// SaveCache stores a fetched inventory so later builds can work offline.
func SaveCache(dir, project string, inv *Inventory) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating inventory cache dir: %w", err)
	}

	f, err := os.Create(cachePath(dir, project))
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer f.Close()

	w, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(w).Encode(inv); err != nil {
		w.Close()
		return fmt.Errorf("writing compressed inventory: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return nil
}

// LoadCache reads an inventory saved by SaveCache.
func LoadCache(dir, project string) (*Inventory, error) {
	f, err := os.Open(cachePath(dir, project))
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()

	var inv Inventory
	if err := json.NewDecoder(r).Decode(&inv); err != nil {
		return nil, fmt.Errorf("decoding cached inventory: %w", err)
	}
	return &inv, nil
}
