package domreplay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domreplay/descriptor"
	"github.com/hazyhaar/domreplay/dom/memdom"
	"github.com/hazyhaar/domreplay/kit"
)

// RegisterMCP registers replay tools on an MCP server.
func (r *Replayer) RegisterMCP(srv *mcp.Server) {
	r.registerResolveTool(srv)
	r.registerResolveHTMLTool(srv)
	r.registerRunTool(srv)
	r.registerStatusTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- resolve ---

type resolveReq struct {
	URL        string                `json:"url"`
	Descriptor descriptor.Descriptor `json:"descriptor"`
}

type resolveResp struct {
	Found      bool    `json:"found"`
	Strategy   string  `json:"strategy,omitempty"`
	Confidence float64 `json:"confidence"`
	Ambiguous  bool    `json:"ambiguous,omitempty"`
	Tag        string  `json:"tag,omitempty"`
	Text       string  `json:"text,omitempty"`
	Retries    int     `json:"retries"`
	Diagnostic string  `json:"diagnostic,omitempty"`
}

func (r *Replayer) registerResolveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domreplay_resolve",
		Description: "Relocate a recorded element descriptor on a live page and report the strategy and confidence, without acting on it.",
		InputSchema: inputSchema(map[string]any{
			"url":        map[string]any{"type": "string", "description": "Page URL to open"},
			"descriptor": map[string]any{"type": "object", "description": "Recorded element descriptor"},
		}, []string{"url", "descriptor"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		q := req.(*resolveReq)
		match, err := r.Resolve(ctx, q.URL, &q.Descriptor)
		if err != nil {
			return nil, err
		}
		resp := resolveResp{
			Found:      match.Found(),
			Strategy:   match.Strategy,
			Confidence: match.Confidence,
			Ambiguous:  match.Ambiguous,
			Retries:    match.Retries,
			Diagnostic: match.Diagnostic,
		}
		if match.Found() {
			resp.Tag = match.Node.Tag()
			resp.Text = match.Node.Text()
		}
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q resolveReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- resolve_html ---

type resolveHTMLReq struct {
	HTML       string                `json:"html"`
	Descriptor descriptor.Descriptor `json:"descriptor"`
}

func (r *Replayer) registerResolveHTMLTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domreplay_resolve_html",
		Description: "Relocate a recorded element descriptor in a static HTML snapshot. No browser required.",
		InputSchema: inputSchema(map[string]any{
			"html":       map[string]any{"type": "string", "description": "HTML document source"},
			"descriptor": map[string]any{"type": "object", "description": "Recorded element descriptor"},
		}, []string{"html", "descriptor"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		q := req.(*resolveHTMLReq)
		doc, err := memdom.Parse(q.HTML)
		if err != nil {
			return nil, err
		}
		scope, err := doc.Scope(ctx, q.Descriptor.FramePath, q.Descriptor.ShadowHosts)
		if err != nil {
			return nil, err
		}
		// Static snapshots don't change between passes; one is enough.
		match := r.resolver.FindOnce(&q.Descriptor, scope)
		resp := resolveResp{
			Found:      match.Found(),
			Strategy:   match.Strategy,
			Confidence: match.Confidence,
			Ambiguous:  match.Ambiguous,
			Retries:    match.Retries,
			Diagnostic: match.Diagnostic,
		}
		if match.Found() {
			resp.Tag = match.Node.Tag()
			resp.Text = match.Node.Text()
		}
		return resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q resolveHTMLReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- run ---

type runReq struct {
	Path string `json:"path"`
}

func (r *Replayer) registerRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domreplay_run",
		Description: "Replay a recorded YAML steps file against its page and report the run summary.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path to the YAML steps file"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		q := req.(*runReq)
		sf, err := LoadStepsFile(q.Path)
		if err != nil {
			return nil, err
		}
		res, err := r.Run(ctx, sf)
		if err != nil {
			return nil, err
		}
		return map[string]any{"run_id": res.RunID, "summary": res.Summary}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q runReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- status ---

type statusReq struct {
	RunID string `json:"run_id"`
}

func (r *Replayer) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domreplay_status",
		Description: "Read the live status snapshot of a run: state, progress, timing.",
		InputSchema: inputSchema(map[string]any{
			"run_id": map[string]any{"type": "string", "description": "Run identifier returned by domreplay_run"},
		}, []string{"run_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		q := req.(*statusReq)
		m, ok := r.registry.Get(q.RunID)
		if !ok {
			return nil, fmt.Errorf("unknown run %s", q.RunID)
		}
		return m.Snapshot(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q statusReq
		if err := json.Unmarshal(req.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
