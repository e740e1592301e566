package inventory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetch loads an inventory from an http(s) URL, a file:// URL or a local path.
func Fetch(ctx context.Context, location string) (*Inventory, error) {
	data, err := fetchBytes(ctx, location)
	if err != nil {
		return nil, err
	}
	inv, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", location, err)
	}
	return inv, nil
}

func fetchBytes(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return nil, fmt.Errorf("reading inventory: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "erldoc/0.1.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s returned %d: %s", location, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	return data, nil
}
