package rpc

import "time"

// BuildRequest is the request body for POST /build.
type BuildRequest struct {
	SourceDir string `json:"source_dir"`
	Force     bool   `json:"force,omitempty"`
}

// BuildResult summarizes one build of a source tree.
type BuildResult struct {
	BuildID     string           `json:"build_id"`
	SourceDir   string           `json:"source_dir"`
	OutputDir   string           `json:"output_dir"`
	Documents   int              `json:"documents"`
	Written     int              `json:"written"`
	Unchanged   int              `json:"unchanged"`
	Removed     int              `json:"removed"`
	Objects     int              `json:"objects"`
	Links       int              `json:"links"`
	External    int              `json:"external"`
	Diagnostics []DiagnosticInfo `json:"diagnostics,omitempty"`
	Duration    time.Duration    `json:"duration"`
	Error       string           `json:"error,omitempty"`
}

// DiagnosticInfo is a warning or error reported for a document line.
// Unresolved references are reported with Role and Target set.
type DiagnosticInfo struct {
	Doc      string `json:"doc"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Role     string `json:"role,omitempty"`
	Target   string `json:"target,omitempty"`
}

// ProgressLine is a single line of NDJSON streamed from the build endpoint.
type ProgressLine struct {
	Type    string       `json:"type"` // "progress" or "result"
	Message string       `json:"message,omitempty"`
	Result  *BuildResult `json:"result,omitempty"`
}

// ResolveRequest is the request body for POST /resolve.
type ResolveRequest struct {
	SourceDir string `json:"source_dir"`
	Role      string `json:"role"`
	Target    string `json:"target"`
	Module    string `json:"module,omitempty"`
}

// ResolveResponse is the response body for POST /resolve.
type ResolveResponse struct {
	Found             bool   `json:"found"`
	Title             string `json:"title,omitempty"`
	Doc               string `json:"doc,omitempty"`
	Anchor            string `json:"anchor,omitempty"`
	ObjType           string `json:"objtype,omitempty"`
	URI               string `json:"uri,omitempty"`
	External          bool   `json:"external,omitempty"`
	FullQualifiedName string `json:"full_qualified_name,omitempty"`
}

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	SourceDir string `json:"source_dir"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
	Sections  bool   `json:"sections,omitempty"`
}

// SearchResponse is the response body for POST /search.
type SearchResponse struct {
	Objects  []ObjectResult  `json:"objects"`
	Sections []SectionResult `json:"sections,omitempty"`
}

type ObjectResult struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	Doc         string `json:"doc"`
	Anchor      string `json:"anchor"`
	URI         string `json:"uri"`
}

type SectionResult struct {
	Doc     string `json:"doc"`
	Heading string `json:"heading"`
	Snippet string `json:"snippet"`
	URI     string `json:"uri"`
}

// GetDocRequest is the request body for POST /get-doc.
type GetDocRequest struct {
	SourceDir string `json:"source_dir"`
	Doc       string `json:"doc"`
	Anchor    string `json:"anchor,omitempty"`
}

// GetDocResponse is the response body for POST /get-doc and POST /modindex.
type GetDocResponse struct {
	Markdown string `json:"markdown"`
}

// ModIndexRequest is the request body for POST /modindex.
type ModIndexRequest struct {
	SourceDir string `json:"source_dir"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Projects []ProjectStatus `json:"projects"`
}

type ProjectStatus struct {
	SourceDir string     `json:"source_dir"`
	Driver    string     `json:"driver"`
	Documents int        `json:"documents"`
	Objects   int        `json:"objects"`
	Sections  int        `json:"sections"`
	Builds    int        `json:"builds"`
	LastBuild *BuildInfo `json:"last_build,omitempty"`
}

type BuildInfo struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Written    int        `json:"written"`
	Warnings   int        `json:"warnings"`
	Unresolved int        `json:"unresolved"`
}

// ClearCacheResponse is the response body for POST /clear-cache.
type ClearCacheResponse struct {
	Projects   int `json:"projects"`
	CASRemoved int `json:"cas_removed"`
}
