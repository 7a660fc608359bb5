package pulse

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/feed"
	"github.com/hazyhaar/feedpulse/kit"
)

// RegisterMCP registers the feedpulse tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerCollectTool(srv)
	e.registerThresholdsTool(srv)
	e.registerSetThresholdsTool(srv)
	e.registerReportsTool(srv)
	e.registerReportTool(srv)
	e.registerVerifyTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
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

func (e *Engine) endpoint(name string, fn kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(e.logger, name))(fn)
}

// --- collect ---

type collectToolRequest struct {
	Preset string        `json:"preset,omitempty"`
	URL    string        `json:"url,omitempty"`
	Custom *crawl.Config `json:"custom,omitempty"`
}

type collectToolResponse struct {
	SessionID string           `json:"session_id"`
	Collected int              `json:"collected"`
	Kept      int              `json:"kept"`
	Rounds    int              `json:"rounds"`
	Stop      crawl.StopReason `json:"stop"`
	Report    string           `json:"report"`
	Profile   feed.Profile     `json:"profile"`
}

func (e *Engine) registerCollectTool(srv *mcp.Server) {
	presets := make([]any, 0, 5)
	for _, n := range crawl.PresetNames() {
		presets = append(presets, n)
	}
	presets = append(presets, crawl.PresetCustom)

	tool := &mcp.Tool{
		Name:        "feedpulse_collect",
		Description: "Scroll a profile page to exhaustion and return a markdown report of its posts, newest first.",
		InputSchema: inputSchema(map[string]any{
			"preset": map[string]any{"type": "string", "enum": presets, "description": "Collection preset (default from config)"},
			"url":    map[string]any{"type": "string", "description": "Profile URL to open in a new tab. Empty = the current feed tab"},
			"custom": map[string]any{"type": "object", "description": "Limits used with preset=custom"},
		}, nil),
	}

	kit.RegisterMCPTool(srv, tool, e.endpoint("collect", func(ctx context.Context, req any) (any, error) {
		r := req.(*collectToolRequest)
		res, err := e.Collect(ctx, CollectRequest{Preset: r.Preset, URL: r.URL, Custom: r.Custom})
		if err != nil {
			return nil, err
		}
		return collectToolResponse{
			SessionID: res.SessionID,
			Collected: res.Collected,
			Kept:      len(res.Posts),
			Rounds:    res.Rounds,
			Stop:      res.Stop,
			Report:    res.Report,
			Profile:   res.Profile,
		}, nil
	}), kit.DecodeArgs[collectToolRequest]())
}

// --- thresholds ---

type emptyRequest struct{}

func (e *Engine) registerThresholdsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedpulse_thresholds",
		Description: "List the like-count bands used to colour post badges.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("thresholds", func(_ context.Context, _ any) (any, error) {
		return e.Thresholds(), nil
	}), kit.DecodeArgs[emptyRequest]())
}

type setThresholdsRequest struct {
	Bands  []feed.ThresholdBand `json:"bands,omitempty"`
	Add    *addBandRequest      `json:"add,omitempty"`
	Remove string               `json:"remove,omitempty"`
}

type addBandRequest struct {
	Min   int    `json:"min"`
	Color string `json:"color"`
}

func (e *Engine) registerSetThresholdsTool(srv *mcp.Server) {
	band := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string"},
			"min":   map[string]any{"type": "integer", "minimum": 1},
			"max":   map[string]any{"type": "integer"},
			"color": map[string]any{"type": "string"},
		},
		"required": []string{"min", "color"},
	}
	tool := &mcp.Tool{
		Name:        "feedpulse_set_thresholds",
		Description: "Replace the band list, add one band, or remove one band by id. Visible posts are re-annotated.",
		InputSchema: inputSchema(map[string]any{
			"bands":  map[string]any{"type": "array", "items": band, "description": "Full replacement band list"},
			"add":    map[string]any{"type": "object", "description": "Band to insert: {min, color}"},
			"remove": map[string]any{"type": "string", "description": "Band id to delete"},
		}, nil),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("set_thresholds", func(ctx context.Context, req any) (any, error) {
		r := req.(*setThresholdsRequest)
		switch {
		case r.Add != nil:
			return e.AddBand(ctx, r.Add.Min, r.Add.Color)
		case r.Remove != "":
			return e.RemoveBand(ctx, r.Remove)
		case len(r.Bands) > 0:
			if err := e.SetThresholds(ctx, r.Bands); err != nil {
				return nil, err
			}
			return e.Thresholds(), nil
		default:
			return nil, fmt.Errorf("one of bands, add or remove is required")
		}
	}), kit.DecodeArgs[setThresholdsRequest]())
}

// --- reports ---

type reportsRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (e *Engine) registerReportsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedpulse_reports",
		Description: "List archived collections, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
		}, nil),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("reports", func(ctx context.Context, req any) (any, error) {
		r := req.(*reportsRequest)
		list, err := e.Reports(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []Summary{}
		}
		return list, nil
	}), kit.DecodeArgs[reportsRequest]())
}

type reportRequest struct {
	ID string `json:"id"`
}

func (e *Engine) registerReportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedpulse_report",
		Description: "Return the markdown report of an archived collection.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Collection session id"},
		}, []string{"id"}),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("report", func(ctx context.Context, req any) (any, error) {
		r := req.(*reportRequest)
		if r.ID == "" {
			return nil, fmt.Errorf("id is required")
		}
		c, err := e.Report(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		return c.Report, nil
	}), kit.DecodeArgs[reportRequest]())
}

// --- verify ---

type verifyRequest struct {
	Code string `json:"code"`
}

func (e *Engine) registerVerifyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedpulse_verify",
		Description: "Check a verification code.",
		InputSchema: inputSchema(map[string]any{
			"code": map[string]any{"type": "string"},
		}, []string{"code"}),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("verify", func(_ context.Context, req any) (any, error) {
		r := req.(*verifyRequest)
		return map[string]bool{"verified": e.Verify(r.Code)}, nil
	}), kit.DecodeArgs[verifyRequest]())
}
