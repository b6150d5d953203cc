package splitpipe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "filesplit-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	eng := New(Config{})
	srv := mcp.NewServer(testMCPImpl, nil)
	eng.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

// --- filesplit_formats ---

func TestMCP_Formats(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "filesplit_formats", map[string]any{})

	var resp struct {
		Formats []string `json:"formats"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	expected := map[string]bool{"pdf": true, "archive": true, "generic": true}
	if len(resp.Formats) != len(expected) {
		t.Errorf("expected %d formats, got %d: %v", len(expected), len(resp.Formats), resp.Formats)
	}
	for _, f := range resp.Formats {
		if !expected[f] {
			t.Errorf("unexpected format: %q", f)
		}
		delete(expected, f)
	}
	for f := range expected {
		t.Errorf("missing format: %q", f)
	}
}

// --- filesplit_detect ---

func TestMCP_Detect(t *testing.T) {
	session := mcpSession(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nstub"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	text := mcpCallTool(t, session, "filesplit_detect", map[string]any{"path": path})

	var resp struct {
		Format        string `json:"format"`
		ExtensionHint string `json:"extension_hint"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Format != "pdf" {
		t.Errorf("format: got %q, want pdf", resp.Format)
	}
	if resp.ExtensionHint != "pdf" {
		t.Errorf("extension_hint: got %q, want pdf", resp.ExtensionHint)
	}
}

func TestMCP_Detect_MissingFile(t *testing.T) {
	session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "filesplit_detect",
		Arguments: map[string]any{"path": filepath.Join(t.TempDir(), "absent.bin")},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	// A missing file is a tool error, not a protocol failure.
	// GetError always returns nil on clients; IsError carries it on the wire.
	if !result.IsError {
		t.Fatal("expected a tool error for a missing file")
	}
}

// --- filesplit_split ---

func TestMCP_Split(t *testing.T) {
	session := mcpSession(t)

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "dump.bin")
	src := pattern(96*1024, 3)
	if err := os.WriteFile(srcPath, src, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	outDir := filepath.Join(dir, "parts")

	text := mcpCallTool(t, session, "filesplit_split", map[string]any{
		"path":      srcPath,
		"max_bytes": 40 * 1024,
		"out_dir":   outDir,
	})

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Format != FormatGeneric {
		t.Errorf("format: got %s, want %s", res.Format, FormatGeneric)
	}
	if len(res.Parts) != 3 {
		t.Fatalf("parts: got %d, want 3", len(res.Parts))
	}

	// Parts were written to out_dir and sizes match the report.
	for _, p := range res.Parts {
		st, err := os.Stat(filepath.Join(outDir, p.Name))
		if err != nil {
			t.Fatalf("part %s not written: %v", p.Name, err)
		}
		if st.Size() != p.SizeBytes {
			t.Errorf("part %s: %d bytes on disk, reported %d", p.Name, st.Size(), p.SizeBytes)
		}
	}
}
