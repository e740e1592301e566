package daemon

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/rpc"
)

const listsPage = "---\ntitle: Lists\n---\n\n" +
	"```{erl:module}\nlists\n:synopsis: List processing.\n```\n\n" +
	"```{erl:function}\nmap(Fun, List1) -> List2\n```\n\nMaps over a list.\n\n" +
	"```{erl:function}\nseq(From, To) -> Seq\n```\n\nMakes a sequence.\n"

const guidePage = "# Guide\n\nCall {erl:func}`lists:map/2` and {erl:func}`lists:nope/1`.\n"

// startServer serves a daemon on a socket in a temp dir. Caches and config
// lookups are redirected to temp dirs too.
func startServer(t *testing.T) (*Server, *Client, string) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	src := t.TempDir()
	for name, content := range map[string]string{"lists.md": listsPage, "guide.md": guidePage} {
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewServer(&config.Config{}, "")
	sock := filepath.Join(t.TempDir(), "d.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	hs := &http.Server{Handler: s.routes()}
	go hs.Serve(l)
	t.Cleanup(func() {
		hs.Close()
		for _, p := range s.openProjects() {
			p.db.Close()
		}
	})
	return s, NewClient(sock), src
}

func TestServer_BuildAndQuery(t *testing.T) {
	_, c, src := startServer(t)
	ctx := context.Background()

	var progress []string
	res, err := c.Build(ctx, rpc.BuildRequest{SourceDir: src}, func(m string) { progress = append(progress, m) })
	if err != nil {
		t.Fatal(err)
	}
	if res.Documents != 2 || res.Written != 2 || res.Links != 1 {
		t.Errorf("build = %+v", res)
	}
	if len(progress) == 0 {
		t.Error("no progress streamed")
	}
	var unresolved []string
	for _, d := range res.Diagnostics {
		if d.Target != "" {
			unresolved = append(unresolved, d.Target)
		}
	}
	if len(unresolved) != 1 || unresolved[0] != "lists:nope/1" {
		t.Errorf("unresolved = %v", unresolved)
	}

	t.Run("resolve", func(t *testing.T) {
		tests := []struct {
			role, target, module string
			found                bool
			anchor, fqn          string
		}{
			{"func", "lists:map/2", "", true, "erl.fn.lists:map/2", "lists:map/2"},
			{"func", "seq/2", "lists", true, "erl.fn.lists:seq/2", "seq/2"},
			{"func", "lists:nope/1", "", false, "", "lists:nope/1"},
			{"mod", "lists", "", true, "module-lists", ""},
		}
		for _, tt := range tests {
			got, err := c.Resolve(ctx, rpc.ResolveRequest{SourceDir: src, Role: tt.role, Target: tt.target, Module: tt.module})
			if err != nil {
				t.Fatalf("%s %s: %v", tt.role, tt.target, err)
			}
			if got.Found != tt.found || got.Anchor != tt.anchor || got.FullQualifiedName != tt.fqn {
				t.Errorf("%s %s = %+v", tt.role, tt.target, got)
			}
		}

		if _, err := c.Resolve(ctx, rpc.ResolveRequest{SourceDir: src, Role: "class", Target: "x"}); err == nil {
			t.Error("unknown role accepted")
		}
	})

	t.Run("search", func(t *testing.T) {
		got, err := c.Search(ctx, rpc.SearchRequest{SourceDir: src, Query: "seq"})
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Objects) == 0 || got.Objects[0].Name != "lists:seq/2" {
			t.Errorf("objects = %+v", got.Objects)
		}
		if _, err := c.Search(ctx, rpc.SearchRequest{SourceDir: src}); err == nil {
			t.Error("empty query accepted")
		}
	})

	t.Run("get_doc", func(t *testing.T) {
		got, err := c.GetDoc(ctx, rpc.GetDocRequest{SourceDir: src, Doc: "lists#erl.fn.lists:map/2"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got.Markdown, "Maps over a list.") || strings.Contains(got.Markdown, "Makes a sequence.") {
			t.Errorf("excerpt:\n%s", got.Markdown)
		}

		full, err := c.GetDoc(ctx, rpc.GetDocRequest{SourceDir: src, Doc: "guide.md"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(full.Markdown, "lists.md#erl.fn.lists:map/2") {
			t.Errorf("guide:\n%s", full.Markdown)
		}

		if _, err := c.GetDoc(ctx, rpc.GetDocRequest{SourceDir: src, Doc: "missing"}); err == nil {
			t.Error("missing document found")
		}
	})

	t.Run("modindex", func(t *testing.T) {
		got, err := c.ModIndex(ctx, rpc.ModIndexRequest{SourceDir: src})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got.Markdown, "List processing.") {
			t.Errorf("modindex:\n%s", got.Markdown)
		}
	})

	t.Run("status_and_clear", func(t *testing.T) {
		st, err := c.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(st.Projects) != 1 || st.Projects[0].Documents != 2 || st.Projects[0].LastBuild == nil {
			t.Fatalf("status = %+v", st)
		}

		cleared, err := c.ClearCache(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if cleared.Projects != 1 || cleared.CASRemoved == 0 {
			t.Errorf("clear = %+v", cleared)
		}
		st, err = c.Status(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if st.Projects[0].Documents != 0 || st.Projects[0].LastBuild != nil {
			t.Errorf("status after clear = %+v", st.Projects[0])
		}
	})
}

func TestServer_IncrementalBuild(t *testing.T) {
	_, c, src := startServer(t)
	ctx := context.Background()

	if _, err := c.Build(ctx, rpc.BuildRequest{SourceDir: src}, nil); err != nil {
		t.Fatal(err)
	}
	res, err := c.Build(ctx, rpc.BuildRequest{SourceDir: src}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written != 0 || res.Unchanged != 2 {
		t.Errorf("second build = %+v", res)
	}
	res, err = c.Build(ctx, rpc.BuildRequest{SourceDir: src, Force: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written != 2 {
		t.Errorf("forced build = %+v", res)
	}
}

func TestServer_AutoBuildAndMetrics(t *testing.T) {
	s, c, src := startServer(t)
	ctx := context.Background()

	// Queries against an unbuilt tree build it first.
	got, err := c.Resolve(ctx, rpc.ResolveRequest{SourceDir: src, Role: "func", Target: "lists:map/2"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Found || got.Doc != "lists" {
		t.Errorf("resolve = %+v", got)
	}

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`erldoc_requests_total{endpoint="resolve"} 1`,
		`erldoc_builds_total{outcome="ok"} 1`,
		`erldoc_pages_written_total 2`,
		`erldoc_unresolved_references 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_BadRequests(t *testing.T) {
	s, _, _ := startServer(t)
	h := s.routes()

	tests := []struct {
		path, body string
		want       int
	}{
		{"/build", `{`, http.StatusBadRequest},
		{"/build", `{}`, http.StatusBadRequest},
		{"/resolve", `{"role":"func","target":"m:f/1"}`, http.StatusBadRequest},
		{"/search", `{"source_dir":"/tmp","query":"  "}`, http.StatusBadRequest},
		{"/get-doc", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
		if rec.Code != tt.want {
			t.Errorf("POST %s %s = %d, want %d", tt.path, tt.body, rec.Code, tt.want)
		}
	}
}
