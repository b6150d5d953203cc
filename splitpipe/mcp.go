package splitpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/filesplit/kit"
)

// RegisterMCP registers the split tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerSplitTool(srv)
	e.registerDetectTool(srv)
	e.registerFormatsTool(srv)
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

// logged wraps tool endpoints with duration logging.
func (e *Engine) logged(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			e.logger.Debug("mcp tool", "tool", name,
				"transport", kit.GetTransport(ctx),
				"duration", time.Since(start), "error", err)
			return resp, err
		}
	}
}

func enrichMCP(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

// --- split ---

type splitReq struct {
	Path     string `json:"path"`
	MaxBytes int64  `json:"max_bytes"`
	OutDir   string `json:"out_dir"`
}

func (e *Engine) registerSplitTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "filesplit_split",
		Description: "Split a file into parts of at most max_bytes each, format-aware for pdf and zip, and write them to out_dir.",
		InputSchema: inputSchema(map[string]any{
			"path":      map[string]any{"type": "string", "description": "Source file path"},
			"max_bytes": map[string]any{"type": "integer", "description": "Byte ceiling per output part"},
			"out_dir":   map[string]any{"type": "string", "description": "Directory receiving the parts (default: alongside the source)"},
		}, []string{"path", "max_bytes"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*splitReq)
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}

		res, err := e.Split(ctx, filepath.Base(r.Path), data, r.MaxBytes)
		if err != nil {
			return nil, err
		}

		outDir := r.OutDir
		if outDir == "" {
			outDir = filepath.Dir(r.Path)
		}
		if err := WriteParts(res, outDir); err != nil {
			return nil, err
		}
		return res, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r splitReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichMCP}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.logged(tool.Name)(endpoint), decode)
}

// --- detect ---

type detectReq struct {
	Path string `json:"path"`
}

func (e *Engine) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "filesplit_detect",
		Description: "Detect the split format of a file from its signature bytes.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to detect"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		head, err := readHead(r.Path, 16)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		return map[string]any{
			"format":         string(Detect(r.Path, head)),
			"extension_hint": string(ExtensionHint(r.Path)),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r detectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrichMCP}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.logged(tool.Name)(endpoint), decode)
}

// --- formats ---

func (e *Engine) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "filesplit_formats",
		Description: "List the format kinds the split engine produces.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": SupportedFormats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil, EnrichCtx: enrichMCP}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.logged(tool.Name)(endpoint), decode)
}

// WriteParts writes every part of a Result into dir, creating it if needed.
func WriteParts(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, p := range res.Parts {
		if err := os.WriteFile(filepath.Join(dir, p.Name), p.Data, 0o644); err != nil {
			return fmt.Errorf("write part %s: %w", p.Name, err)
		}
	}
	return nil
}

// readHead returns up to n leading bytes of a file.
func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	m, err := f.Read(buf)
	if m == 0 && err != nil {
		return nil, err
	}
	return buf[:m], nil
}
