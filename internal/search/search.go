// Package search finds documented objects and page sections by name.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jj1bdx/erldoc/internal/db"
	"github.com/jj1bdx/erldoc/internal/markdown"
	"github.com/jj1bdx/erldoc/internal/rpc"
)

// Scheme prefixes the URIs of search results.
const Scheme = "erldoc://"

type Searcher struct {
	db *db.DB
}

func NewSearcher(database *db.DB) *Searcher {
	return &Searcher{db: database}
}

// URI addresses a rendered page, or a place in it when anchor is set.
func URI(doc, anchor string) string {
	if anchor == "" {
		return Scheme + doc
	}
	return Scheme + doc + "#" + anchor
}

// ParseURI splits a URI made by URI. The scheme is optional.
func ParseURI(uri string) (doc, anchor string) {
	doc, anchor, _ = strings.Cut(strings.TrimPrefix(uri, Scheme), "#")
	return doc, anchor
}

// Search matches query against object names and, when sections is set,
// against the headings and text of rendered pages. Objects reachable under
// several names are reported once, under their best-ranked name.
func (s *Searcher) Search(ctx context.Context, query string, limit int, sections bool) (*rpc.SearchResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	slog.Info("search", "query", query, "limit", limit, "sections", sections)

	// Each object has several inventory names; fetch enough to fill limit
	// after folding them.
	objs, err := s.db.SearchObjects(ctx, query, limit*4)
	if err != nil {
		return nil, fmt.Errorf("searching objects: %w", err)
	}

	resp := &rpc.SearchResponse{Objects: []rpc.ObjectResult{}}
	seen := make(map[string]bool)
	for _, o := range objs {
		key := o.DocName + "#" + o.Anchor
		if seen[key] {
			continue
		}
		seen[key] = true
		resp.Objects = append(resp.Objects, rpc.ObjectResult{
			Name:        o.Name,
			DisplayName: o.DisplayName,
			Type:        o.Type,
			Doc:         o.DocName,
			Anchor:      o.Anchor,
			URI:         URI(o.DocName, o.Anchor),
		})
		if len(resp.Objects) == limit {
			break
		}
	}
	slog.Debug("object search done", "candidates", len(objs), "results", len(resp.Objects))

	if !sections {
		return resp, nil
	}
	secs, err := s.db.SearchSections(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching sections: %w", err)
	}
	for _, sec := range secs {
		text := sec.Body
		// Matched on the heading only.
		if !strings.Contains(strings.ToLower(text), strings.ToLower(query)) {
			if sum := markdown.Summary(text); sum != "" {
				text = sum
			}
		}
		resp.Sections = append(resp.Sections, rpc.SectionResult{
			Doc:     sec.DocName,
			Heading: sec.Heading,
			Snippet: snippet(text, query, 200),
			URI:     URI(sec.DocName, ""),
		})
	}
	return resp, nil
}

// snippet returns up to maxLen bytes of text starting a little before the
// first case-insensitive match of query.
func snippet(text, query string, maxLen int) string {
	start := 0
	if i := strings.Index(strings.ToLower(text), strings.ToLower(query)); i > 40 {
		start = i - 40
		for start < i && !isBoundary(text[start]) {
			start++
		}
	}
	s := text[start:]
	prefix := ""
	if start > 0 {
		prefix = "..."
	}
	return prefix + truncate(strings.TrimSpace(s), maxLen)
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
