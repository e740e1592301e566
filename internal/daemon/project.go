package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jj1bdx/erldoc/internal/build"
	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/db"
	"github.com/jj1bdx/erldoc/internal/inventory"
	"github.com/jj1bdx/erldoc/internal/search"
)

// project is the daemon state of one source tree.
type project struct {
	dir      string
	cfg      *config.Config
	db       *db.DB
	ext      *inventory.Set
	builder  *build.Builder
	searcher *search.Searcher

	// buildMu serializes builds; they share the store.
	buildMu sync.Mutex

	mu   sync.RWMutex
	last *build.Result
}

func (p *project) lastBuild() *build.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

func (p *project) setLastBuild(res *build.Result) {
	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
}

// project returns the state of the tree rooted at dir, opening it on first use.
func (s *Server) project(ctx context.Context, dir string) (*project, error) {
	if dir == "" {
		return nil, fmt.Errorf("missing source_dir")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	s.projMu.Lock()
	defer s.projMu.Unlock()
	if p, ok := s.projects[abs]; ok {
		return p, nil
	}

	cfg, err := config.LoadFrom(abs)
	if err != nil {
		return nil, fmt.Errorf("loading config of %s: %w", abs, err)
	}
	database, err := db.Open(config.DBPath(abs, cfg.Store.Driver), cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	ext := inventory.Load(ctx, cfg.Intersphinx, s.inventoryDir, cfg.Erlang.DefaultModule)

	p := &project{
		dir:      abs,
		cfg:      cfg,
		db:       database,
		ext:      ext,
		builder:  build.New(cfg, abs, database, s.cas, ext),
		searcher: search.NewSearcher(database),
	}
	s.projects[abs] = p
	slog.Info("opened project", "dir", abs, "driver", database.Driver(), "intersphinx", len(ext.Projects()))
	return p, nil
}

// openProjects returns every open project, ordered by directory.
func (s *Server) openProjects() []*project {
	s.projMu.Lock()
	defer s.projMu.Unlock()
	out := make([]*project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dir < out[j].dir })
	return out
}
