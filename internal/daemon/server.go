package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jj1bdx/erldoc/internal/build"
	"github.com/jj1bdx/erldoc/internal/cas"
	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/docs"
	"github.com/jj1bdx/erldoc/internal/domain"
	"github.com/jj1bdx/erldoc/internal/rpc"
	"github.com/jj1bdx/erldoc/internal/search"
)

type Server struct {
	cfg          *config.Config
	cas          *cas.Store
	inventoryDir string
	socketPath   string
	httpServer   *http.Server
	listener     net.Listener
	metrics      *metrics

	mu         sync.Mutex
	expTimer   *time.Timer
	expiration time.Duration

	projMu     sync.Mutex
	projects   map[string]*project
	buildGroup singleflight.Group
}

func NewServer(cfg *config.Config, socketPath string) *Server {
	expSec := cfg.Daemon.ExpirationSeconds
	if expSec <= 0 {
		expSec = 600
	}

	return &Server{
		cfg:          cfg,
		cas:          cas.New(config.CASDir()),
		inventoryDir: config.InventoryCacheDir(),
		socketPath:   socketPath,
		metrics:      newMetrics(),
		expiration:   time.Duration(expSec) * time.Second,
		projects:     make(map[string]*project),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /build", s.withExpReset("build", s.handleBuild))
	mux.HandleFunc("POST /resolve", s.withExpReset("resolve", s.handleResolve))
	mux.HandleFunc("POST /search", s.withExpReset("search", s.handleSearch))
	mux.HandleFunc("POST /get-doc", s.withExpReset("get-doc", s.handleGetDoc))
	mux.HandleFunc("POST /modindex", s.withExpReset("modindex", s.handleModIndex))
	mux.HandleFunc("GET /status", s.withExpReset("status", s.handleStatus))
	mux.HandleFunc("POST /clear-cache", s.withExpReset("clear-cache", s.handleClearCache))
	mux.Handle("GET /metrics", s.metrics.handler())
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.routes()}

	s.mu.Lock()
	s.expTimer = time.AfterFunc(s.expiration, s.expire)
	s.mu.Unlock()

	slog.Info("daemon listening", "socket", s.socketPath, "cas", s.cas.Dir(), "expiration", s.expiration)

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("listener close error", "error", err)
			errs = append(errs, err)
		}
	}
	if s.socketPath != "" {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			slog.Error("socket remove error", "error", err)
			errs = append(errs, err)
		}
	}
	for _, p := range s.openProjects() {
		if err := p.db.Close(); err != nil {
			slog.Error("db close error", "dir", p.dir, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) expire() {
	slog.Info("expiring due to inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	os.Exit(0)
}

func (s *Server) resetExpiration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expTimer != nil {
		s.expTimer.Stop()
		s.expTimer.Reset(s.expiration)
	}
}

func (s *Server) withExpReset(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	counter := s.metrics.requests.WithLabelValues(endpoint)
	return func(w http.ResponseWriter, r *http.Request) {
		s.resetExpiration()
		counter.Inc()
		handler(w, r)
	}
}

// build runs one build of p. Concurrent requests with the same arguments
// share a single run; only the first caller receives progress.
func (s *Server) build(ctx context.Context, p *project, force bool, progress func(string)) (*build.Result, error) {
	key := p.dir + "\x00" + strconv.FormatBool(force)
	v, err, _ := s.buildGroup.Do(key, func() (interface{}, error) {
		p.buildMu.Lock()
		defer p.buildMu.Unlock()

		// Builds outlive the request that started them.
		res, err := p.builder.Build(context.WithoutCancel(ctx), build.Options{Force: force, Progress: progress})
		if err != nil {
			s.metrics.builds.WithLabelValues("error").Inc()
			return nil, err
		}
		s.metrics.builds.WithLabelValues("ok").Inc()
		s.metrics.buildDuration.Observe(res.Duration.Seconds())
		s.metrics.pagesWritten.Add(float64(res.Written))
		s.metrics.unresolved.Set(float64(len(res.Unresolved)))
		p.setLastBuild(res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*build.Result), nil
}

// ensureBuilt builds p unless the daemon already holds a build of it.
func (s *Server) ensureBuilt(ctx context.Context, p *project) (*build.Result, error) {
	if res := p.lastBuild(); res != nil {
		return res, nil
	}
	return s.build(ctx, p, false, func(msg string) {
		slog.Info("auto-build", "dir", p.dir, "msg", msg)
	})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req rpc.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.project(r.Context(), req.SourceDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	send := func(line rpc.ProgressLine) bool {
		if err := enc.Encode(line); err != nil {
			slog.Warn("client disconnected", "error", err)
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	progress := func(msg string) {
		slog.Info("build", "dir", p.dir, "msg", msg)
		send(rpc.ProgressLine{Type: "progress", Message: msg})
	}
	result := rpc.BuildResult{SourceDir: p.dir, OutputDir: p.builder.OutputDir}
	if res, err := s.build(r.Context(), p, req.Force, progress); err != nil {
		result.Error = err.Error()
	} else {
		result = buildResult(p, res)
	}
	send(rpc.ProgressLine{Type: "result", Result: &result})
}

func buildResult(p *project, res *build.Result) rpc.BuildResult {
	out := rpc.BuildResult{
		BuildID:   res.BuildID,
		SourceDir: p.dir,
		OutputDir: p.builder.OutputDir,
		Documents: res.Documents,
		Written:   res.Written,
		Unchanged: res.Unchanged,
		Removed:   res.Removed,
		Objects:   res.Objects,
		Links:     res.Links,
		External:  res.External,
		Duration:  res.Duration,
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, rpc.DiagnosticInfo{
			Doc:      d.Doc,
			Line:     d.Line,
			Severity: d.Severity.String(),
			Message:  d.Err.Error(),
		})
	}
	for _, u := range res.Unresolved {
		out.Diagnostics = append(out.Diagnostics, rpc.DiagnosticInfo{
			Doc:      u.Doc,
			Line:     u.Line,
			Severity: domain.SeverityWarning.String(),
			Message:  "unresolved reference",
			Role:     u.Role,
			Target:   u.Target,
		})
	}
	return out
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req rpc.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !domain.IsRole(req.Role) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q (want one of %s)", req.Role, strings.Join(domain.Roles, ", ")))
		return
	}
	p, err := s.project(r.Context(), req.SourceDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.ensureBuilt(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	d := res.Domain
	title, target, explicit := docs.SplitTitle(req.Target)
	link := d.ProcessLink(domain.NewContext("", req.Module), req.Role, title, target, explicit)

	var resp rpc.ResolveResponse
	if fq, ok := domain.FullQualifiedName(req.Role, link.Target); ok {
		resp.FullQualifiedName = fq
	}
	if t, ok := d.ResolveXref(link); ok {
		resp.Found = true
		resp.Title = t.Title
		resp.Doc = t.DocName
		resp.Anchor = t.RefName
		resp.ObjType = string(t.ObjType)
		resp.URI = search.URI(t.DocName, t.RefName)
	} else if href, title, ok := p.ext.ResolveExternal(link); ok {
		resp.Found = true
		resp.External = true
		resp.Title = title
		resp.URI = href
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req rpc.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}
	p, err := s.project(r.Context(), req.SourceDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.ensureBuilt(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp, err := p.searcher.Search(r.Context(), req.Query, req.Limit, req.Sections)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if name, anchor, ok := strings.Cut(req.Doc, "#"); ok && req.Anchor == "" {
		req.Doc, req.Anchor = name, anchor
	}
	req.Doc = strings.TrimSuffix(req.Doc, ".md")

	p, err := s.project(r.Context(), req.SourceDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.ensureBuilt(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var content string
	if req.Doc == docs.ModuleIndexName {
		content = res.ModuleIndex
	} else {
		content, err = s.readPage(r.Context(), p, req.Doc)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	if req.Anchor != "" {
		excerpt, ok := docs.Excerpt(content, req.Anchor)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("anchor %q not found in %s", req.Anchor, req.Doc))
			return
		}
		content = excerpt
	}
	writeJSON(w, http.StatusOK, rpc.GetDocResponse{Markdown: content})
}

// readPage returns the rendered page of doc from the CAS, falling back to
// the output directory when the CAS entry is gone.
func (s *Server) readPage(ctx context.Context, p *project, doc string) (string, error) {
	stored, err := p.db.GetDocument(ctx, doc)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", fmt.Errorf("document %s not found in %s", doc, p.dir)
	}
	content, err := s.cas.Read(stored.OutputHash)
	if err == nil {
		return content, nil
	}
	data, ferr := os.ReadFile(p.builder.OutputPath(doc))
	if ferr != nil {
		return "", fmt.Errorf("reading %s: %w", doc, errors.Join(err, ferr))
	}
	return string(data), nil
}

func (s *Server) handleModIndex(w http.ResponseWriter, r *http.Request) {
	var req rpc.ModIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.project(r.Context(), req.SourceDir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.ensureBuilt(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rpc.GetDocResponse{Markdown: res.ModuleIndex})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := rpc.StatusResponse{Projects: []rpc.ProjectStatus{}}
	for _, p := range s.openProjects() {
		stats, err := p.db.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		st := rpc.ProjectStatus{
			SourceDir: p.dir,
			Driver:    p.db.Driver(),
			Documents: stats.Documents,
			Objects:   stats.Objects,
			Sections:  stats.Sections,
			Builds:    stats.Builds,
		}
		last, err := p.db.LastBuild(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if last != nil {
			st.LastBuild = &rpc.BuildInfo{
				ID:         last.ID,
				StartedAt:  last.StartedAt,
				FinishedAt: last.FinishedAt,
				Written:    last.Written,
				Warnings:   last.Warnings,
				Unresolved: last.Unresolved,
			}
		}
		resp.Projects = append(resp.Projects, st)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleClearCache drops the stored state of every open project and every
// CAS entry. The next build rewrites all pages.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var resp rpc.ClearCacheResponse
	for _, p := range s.openProjects() {
		p.buildMu.Lock()
		err := p.db.Clear(r.Context())
		if err == nil {
			p.setLastBuild(nil)
		}
		p.buildMu.Unlock()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Projects++
	}
	n, err := s.cas.Prune(func(string) bool { return false })
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.CASRemoved = n
	slog.Info("cache cleared", "projects", resp.Projects, "cas_removed", n)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
		os.Exit(0)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
