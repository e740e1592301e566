package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jj1bdx/erldoc/internal/rpc"
)

type fakeBackend struct {
	builds   []rpc.BuildRequest
	resolves []rpc.ResolveRequest
	searches []rpc.SearchRequest
	gets     []rpc.GetDocRequest
}

func (f *fakeBackend) Build(_ context.Context, req rpc.BuildRequest, _ func(string)) (*rpc.BuildResult, error) {
	f.builds = append(f.builds, req)
	return &rpc.BuildResult{SourceDir: req.SourceDir, Documents: 3, Written: 1}, nil
}

func (f *fakeBackend) Resolve(_ context.Context, req rpc.ResolveRequest) (*rpc.ResolveResponse, error) {
	f.resolves = append(f.resolves, req)
	if req.Target != "lists:map/2" {
		return &rpc.ResolveResponse{}, nil
	}
	return &rpc.ResolveResponse{Found: true, Doc: "lists", Anchor: "erl.fn.lists:map/2", URI: "erldoc://lists#erl.fn.lists:map/2"}, nil
}

func (f *fakeBackend) Search(_ context.Context, req rpc.SearchRequest) (*rpc.SearchResponse, error) {
	f.searches = append(f.searches, req)
	if req.Query == "boom" {
		return nil, errors.New("store closed")
	}
	return &rpc.SearchResponse{Objects: []rpc.ObjectResult{{Name: "lists:map/2", URI: "erldoc://lists#erl.fn.lists:map/2"}}}, nil
}

func (f *fakeBackend) GetDoc(_ context.Context, req rpc.GetDocRequest) (*rpc.GetDocResponse, error) {
	f.gets = append(f.gets, req)
	return &rpc.GetDocResponse{Markdown: "### `lists:map(Fun, List1) -> List2`\n"}, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text
}

func TestTools(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := &fakeBackend{}
	s := newServer(f, "/src/docs")

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
		isError bool
		want    string
	}{
		{"build", s.handleBuildDocs, map[string]any{"force": true}, false, `"documents": 3`},
		{"resolve", s.handleResolve, map[string]any{"role": "func", "target": "lists:map/2"}, false, `"anchor": "erl.fn.lists:map/2"`},
		{"resolve_missing", s.handleResolve, map[string]any{"role": "func", "target": "lists:nope/1"}, true, "no object matches"},
		{"resolve_no_args", s.handleResolve, map[string]any{}, true, "missing required"},
		{"search", s.handleSearchObjects, map[string]any{"query": "map", "limit": float64(5), "sections": true}, false, `"name": "lists:map/2"`},
		{"search_error", s.handleSearchObjects, map[string]any{"query": "boom"}, true, "store closed"},
		{"search_no_query", s.handleSearchObjects, map[string]any{}, true, "missing required"},
	}
	for _, tt := range tests {
		res, err := tt.handler(ctx, call(tt.args))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res.IsError != tt.isError {
			t.Errorf("%s: IsError = %v", tt.name, res.IsError)
		}
		if got := resultText(t, res); !strings.Contains(got, tt.want) {
			t.Errorf("%s: result %q does not contain %q", tt.name, got, tt.want)
		}
	}

	if len(f.builds) != 1 || !f.builds[0].Force || f.builds[0].SourceDir != "/src/docs" {
		t.Errorf("builds = %+v", f.builds)
	}
	if len(f.searches) != 2 || f.searches[0].Limit != 5 || !f.searches[0].Sections {
		t.Errorf("searches = %+v", f.searches)
	}
}

func TestReadResource(t *testing.T) {
	t.Parallel()
	f := &fakeBackend{}
	s := newServer(f, "/src/docs")

	uri := "erldoc://ref/lists#erl.fn.lists:map/2"
	contents, err := s.handleReadResource(context.Background(), mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: uri}})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok || text.URI != uri || !strings.Contains(text.Text, "lists:map") {
		t.Errorf("contents = %+v", contents[0])
	}
	if len(f.gets) != 1 || f.gets[0].Doc != "ref/lists" || f.gets[0].Anchor != "erl.fn.lists:map/2" {
		t.Errorf("gets = %+v", f.gets)
	}

	if _, err := s.handleReadResource(context.Background(), mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "erldoc://"}}); err == nil {
		t.Error("empty URI accepted")
	}
}
