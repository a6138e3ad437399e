package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lvillar/pdfreport/objecturl"
)

func sendRequest(t *testing.T, s *Server, method string, id int, params interface{}) jsonrpcResponse {
	t.Helper()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	reqBytes = append(reqBytes, '\n')

	var output bytes.Buffer
	s.input = bytes.NewReader(reqBytes)
	s.output = &output

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response %q: %v", output.String(), err)
	}
	return resp
}

func newTestServer(ts Toolset) *Server {
	s := NewServerWithIO(nil, nil, zerolog.Nop())
	RegisterDefaultTools(s, ts)
	RegisterDefaultResources(s)
	return s
}

func toolText(t *testing.T, resp jsonrpcResponse) (string, map[string]interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("result is not a map")
	}
	content, ok := result["content"].([]interface{})
	if !ok || len(content) == 0 {
		t.Fatalf("missing content: %v", result)
	}
	first := content[0].(map[string]interface{})
	text, _ := first["text"].(string)
	return text, result
}

func TestServerInitialize(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "initialize", 1, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "test", "version": "1.0"},
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("result is not a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("missing serverInfo")
	}
	if serverInfo["name"] != "pdfreport-mcp" {
		t.Fatalf("unexpected server name: %v", serverInfo["name"])
	}
}

func TestServerToolsList(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]interface{})
	if !ok {
		t.Fatal("tools is not an array")
	}

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	want := "render_markdown,render_report,wrap_text"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("tools = %s, want %s", got, want)
	}
}

func TestServerResources(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "resources/list", 3, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	resources := resp.Result.(map[string]interface{})["resources"].([]interface{})
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}

	resp = sendRequest(t, s, "resources/read", 4, map[string]interface{}{"uri": sampleURI})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
	contents := resp.Result.(map[string]interface{})["contents"].([]interface{})
	text := contents[0].(map[string]interface{})["text"].(string)

	// the sample must be renderable as-is
	var tpl map[string]interface{}
	if err := json.Unmarshal([]byte(text), &tpl); err != nil {
		t.Fatalf("sample is not JSON: %v", err)
	}
	resp = sendRequest(t, s, "tools/call", 5, map[string]interface{}{
		"name":      "render_report",
		"arguments": map[string]interface{}{"template": tpl},
	})
	summary, result := toolText(t, resp)
	if result["isError"] == true {
		t.Fatalf("sample failed to render: %s", summary)
	}
}

func TestServerPing(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "ping", 4, nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error.Message)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "nonexistent/method", 5, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Fatalf("expected error code -32601, got %d", resp.Error.Code)
	}
}

func TestServerUnknownTool(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "tools/call", 6, map[string]interface{}{
		"name":      "nonexistent_tool",
		"arguments": map[string]interface{}{},
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestRenderReportTool(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "tools/call", 7, map[string]interface{}{
		"name": "render_report",
		"arguments": map[string]interface{}{
			"template": map[string]interface{}{
				"title": "Test Report",
				"sections": []interface{}{
					map[string]interface{}{
						"title": "Hello MCP",
						"blocks": []interface{}{
							map[string]interface{}{"type": "paragraph", "text": "Created via MCP tool."},
						},
					},
				},
			},
		},
	})

	text, result := toolText(t, resp)
	if !strings.Contains(text, "1 pages") {
		t.Fatalf("unexpected summary: %s", text)
	}
	content := result["content"].([]interface{})
	if len(content) != 2 {
		t.Fatalf("expected text and resource content, got %d blocks", len(content))
	}
	data, err := base64.StdEncoding.DecodeString(content[1].(map[string]interface{})["data"].(string))
	if err != nil {
		t.Fatalf("decoding pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("resource is not a PDF")
	}
}

func TestRenderReportToolInvalidTemplate(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "tools/call", 8, map[string]interface{}{
		"name":      "render_report",
		"arguments": map[string]interface{}{"template": map[string]interface{}{"title": "Empty"}},
	})
	_, result := toolText(t, resp)
	if result["isError"] != true {
		t.Fatal("expected isError for a template without sections")
	}
}

func TestRenderMarkdownToolWritesFile(t *testing.T) {
	s := newTestServer(Toolset{})
	path := filepath.Join(t.TempDir(), "out.pdf")

	resp := sendRequest(t, s, "tools/call", 9, map[string]interface{}{
		"name": "render_markdown",
		"arguments": map[string]interface{}{
			"title":      "Notes",
			"markdown":   "# Week\n\nAll good.\n",
			"outputPath": path,
		},
	})
	text, _ := toolText(t, resp)
	if !strings.Contains(text, "Saved to "+path) {
		t.Fatalf("unexpected summary: %s", text)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestRenderMarkdownToolPublishes(t *testing.T) {
	store := objecturl.NewMemoryStore("http://test/blobs", time.Hour)
	s := newTestServer(Toolset{Store: store})

	resp := sendRequest(t, s, "tools/call", 10, map[string]interface{}{
		"name":      "render_markdown",
		"arguments": map[string]interface{}{"markdown": "# Week\n\nAll good.\n"},
	})
	text, _ := toolText(t, resp)
	if !strings.Contains(text, "URL: http://test/blobs/") {
		t.Fatalf("unexpected summary: %s", text)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d objects, want 1", store.Len())
	}
}

func TestWrapTextTool(t *testing.T) {
	s := newTestServer(Toolset{})

	resp := sendRequest(t, s, "tools/call", 11, map[string]interface{}{
		"name": "wrap_text",
		"arguments": map[string]interface{}{
			"text":  "the quick brown fox jumps over the lazy dog",
			"width": 20,
		},
	})
	text, _ := toolText(t, resp)

	var out struct {
		Lines []string `json:"lines"`
		Count int      `json:"count"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decoding lines: %v", err)
	}
	if out.Count < 2 || out.Count != len(out.Lines) {
		t.Fatalf("expected several lines, got %v", out.Lines)
	}
	if got := strings.Join(out.Lines, " "); got != "the quick brown fox jumps over the lazy dog" {
		t.Fatalf("lines lost words: %q", got)
	}
}

func TestServerNotificationsGetNoReply(t *testing.T) {
	s := newTestServer(Toolset{})

	var output bytes.Buffer
	s.input = strings.NewReader(
		`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
			`{"jsonrpc":"2.0","method":"tools/list"}` + "\n" +
			`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	s.output = &output

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the ping reply, got %q", output.String())
	}
	if !strings.Contains(lines[0], `"id":1`) {
		t.Fatalf("unexpected reply: %s", lines[0])
	}
}
