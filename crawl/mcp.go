package crawl

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nquill/memescope/kit"
)

// RegisterMCP registers all memescope tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerStats(srv)
	s.registerTopMentions(srv)
	s.registerRecentItems(srv)
	s.registerResolveSymbol(srv)
	s.registerAddSymbol(srv)
	s.registerRun(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Service) registerStats(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "memescope_stats",
		Description: "Corpus-level counters: content items, mentions, distinct tickers, crawl events",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Stats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: struct{}{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerTopMentions(srv *mcp.Server) {
	type req struct {
		SinceHours int `json:"since_hours"`
		Limit      int `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "memescope_top_mentions",
		Description: "Mention keys ranked by total occurrence count, optionally windowed",
		InputSchema: inputSchema(map[string]any{
			"since_hours": map[string]any{"type": "integer", "description": "Only count mentions observed in the last N hours (0 = all)"},
			"limit":       map[string]any{"type": "integer", "description": "Max keys returned (default 20)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		var since time.Time
		if p.SinceHours > 0 {
			since = time.Now().Add(-time.Duration(p.SinceHours) * time.Hour)
		}
		limit := p.Limit
		if limit <= 0 {
			limit = 20
		}
		return s.TopMentions(ctx, since, limit)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if len(r.Params.Arguments) > 0 {
			if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerRecentItems(srv *mcp.Server) {
	type req struct {
		Limit int `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "memescope_recent_items",
		Description: "Most recently discovered content items with their metadata",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max items returned (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		limit := p.Limit
		if limit <= 0 {
			limit = 50
		}
		return s.RecentItems(ctx, limit)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if len(r.Params.Arguments) > 0 {
			if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerResolveSymbol(srv *mcp.Server) {
	type req struct {
		Symbol string `json:"symbol"`
	}

	tool := &mcp.Tool{
		Name:        "memescope_resolve_symbol",
		Description: "Resolve a ticker symbol to its registered token identifiers",
		InputSchema: inputSchema(map[string]any{
			"symbol": map[string]any{"type": "string", "description": "Ticker symbol, case-insensitive"},
		}, []string{"symbol"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		tokens, err := s.ResolveSymbol(ctx, p.Symbol)
		if err != nil {
			return nil, err
		}
		return map[string]any{"symbol": p.Symbol, "tokens": tokens}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerAddSymbol(srv *mcp.Server) {
	type req struct {
		Symbol  string `json:"symbol"`
		TokenID string `json:"token_id"`
	}

	tool := &mcp.Tool{
		Name:        "memescope_add_symbol",
		Description: "Register a symbol-to-token mapping in the symbol registry",
		InputSchema: inputSchema(map[string]any{
			"symbol":   map[string]any{"type": "string", "description": "Ticker symbol"},
			"token_id": map[string]any{"type": "string", "description": "Chain address or token identifier"},
		}, []string{"symbol", "token_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := s.AddSymbol(ctx, p.Symbol, p.TokenID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "registered"}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerRun(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "memescope_run",
		Description: "Start a crawl run over the configured terms; returns immediately",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		if s.Running() {
			return nil, ErrRunInProgress
		}
		go func() {
			if _, err := s.Run(context.Background()); err != nil {
				s.log.Error("triggered run failed", "error", err)
			}
		}()
		return map[string]string{"status": "started"}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: struct{}{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
