// Package mcp implements a Model Context Protocol (MCP) server that exposes
// report rendering as tools and resources for AI assistants.
//
// The server communicates via JSON-RPC 2.0 over stdio and implements the
// MCP specification (2024-11-05) for tools and resources.
//
// # Usage with Claude Desktop
//
// Add to your claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pdfreport": {
//	      "command": "pdfreport",
//	      "args": ["mcp"]
//	    }
//	  }
//	}
package mcp

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "pdfreport-mcp"
	serverVersion   = "1.0.0"
)

// Server is an MCP server that handles JSON-RPC 2.0 messages over stdio.
type Server struct {
	tools     map[string]Tool
	resources map[string]Resource
	methods   map[string]method
	input     io.Reader
	output    io.Writer
	logger    zerolog.Logger
	mu        sync.Mutex // serializes writes to output
}

// method answers one request with a result or an RPC error.
type method func(ctx context.Context, params json.RawMessage) (any, *rpcError)

// Tool defines an MCP tool that can be called by the client.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	Handler     ToolHandler            `json:"-"`
}

// ToolHandler executes a tool with the given arguments.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (ToolResult, error)

// ToolResult is the result returned by a tool execution.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is a piece of content in a tool result.
type ContentBlock struct {
	Type     string `json:"type"` // "text" or "resource"
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"` // base64 for binary
}

// Resource defines an MCP resource.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Handler     ResourceHandler `json:"-"`
}

// ResourceHandler reads a resource and returns its content.
type ResourceHandler func(uri string) ([]ResourceContent, error)

// ResourceContent is the content of a read resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // base64
}

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type jsonrpcRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *rpcError        `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func invalidParams(err error) *rpcError {
	return &rpcError{Code: codeInvalidParams, Message: "Invalid params", Data: err.Error()}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                    `json:"protocolVersion"`
	Capabilities    map[string]map[string]any `json:"capabilities"`
	ServerInfo      serverInfo                `json:"serverInfo"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type resourcesListResult struct {
	Resources []Resource `json:"resources"`
}

type resourcesReadResult struct {
	Contents []ResourceContent `json:"contents"`
}

// NewServer creates a new MCP server reading from stdin and writing to
// stdout. Logs go to the given logger, never to stdout.
func NewServer(logger zerolog.Logger) *Server {
	return NewServerWithIO(os.Stdin, os.Stdout, logger)
}

// NewServerWithIO creates a new MCP server with custom I/O.
func NewServerWithIO(in io.Reader, out io.Writer, logger zerolog.Logger) *Server {
	s := &Server{
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
		input:     in,
		output:    out,
		logger:    logger,
	}
	s.methods = map[string]method{
		"initialize":     s.initialize,
		"ping":           func(context.Context, json.RawMessage) (any, *rpcError) { return struct{}{}, nil },
		"tools/list":     s.listTools,
		"tools/call":     s.callTool,
		"resources/list": s.listResources,
		"resources/read": s.readResource,
	}
	return s
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *Server) AddTool(t Tool) {
	s.tools[t.Name] = t
}

// AddResource registers a resource, replacing any with the same URI.
func (s *Server) AddResource(r Resource) {
	s.resources[r.URI] = r
}

// Run processes newline-delimited messages until EOF or until ctx is done.
// Requests are answered in order.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.input)
	scanner.Buffer(make([]byte, 0, 1<<20), 10<<20)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonrpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(nil, nil, &rpcError{Code: codeParseError, Message: "Parse error", Data: err.Error()})
			continue
		}
		s.dispatch(ctx, req)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req jsonrpcRequest) {
	log := s.logger.With().Str("method", req.Method).Logger()
	log.Debug().Msg("mcp request")

	m, ok := s.methods[req.Method]
	if !ok {
		// notifications such as notifications/initialized expect no reply
		if req.ID == nil {
			return
		}
		s.reply(req.ID, nil, &rpcError{Code: codeMethodNotFound, Message: "Method not found", Data: req.Method})
		return
	}

	result, rerr := m(log.WithContext(ctx), req.Params)
	if req.ID == nil {
		return
	}
	s.reply(req.ID, result, rerr)
}

func (s *Server) initialize(context.Context, json.RawMessage) (any, *rpcError) {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]map[string]any{
			"tools":     {},
			"resources": {},
		},
		ServerInfo: serverInfo{Name: serverName, Version: serverVersion},
	}, nil
}

func (s *Server) listTools(context.Context, json.RawMessage) (any, *rpcError) {
	tools := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t)
	}
	slices.SortFunc(tools, func(a, b Tool) int { return cmp.Compare(a.Name, b.Name) })
	return toolsListResult{Tools: tools}, nil
}

// callTool runs a tool. Tool failures are results flagged with isError so
// the client can show them; only protocol problems are RPC errors.
func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *rpcError) {
	var p struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	tool, ok := s.tools[p.Name]
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Unknown tool", Data: p.Name}
	}

	result, err := tool.Handler(ctx, p.Arguments)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("tool", p.Name).Msg("tool failed")
		return ToolResult{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Error: %v", err)}},
			IsError: true,
		}, nil
	}
	return result, nil
}

func (s *Server) listResources(context.Context, json.RawMessage) (any, *rpcError) {
	resources := make([]Resource, 0, len(s.resources))
	for _, r := range s.resources {
		resources = append(resources, r)
	}
	slices.SortFunc(resources, func(a, b Resource) int { return cmp.Compare(a.URI, b.URI) })
	return resourcesListResult{Resources: resources}, nil
}

func (s *Server) readResource(_ context.Context, params json.RawMessage) (any, *rpcError) {
	var p struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams(err)
	}
	r, ok := s.resources[p.URI]
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "Unknown resource", Data: p.URI}
	}
	contents, err := r.Handler(p.URI)
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: "Resource error", Data: err.Error()}
	}
	return resourcesReadResult{Contents: contents}, nil
}

func (s *Server) reply(id *json.RawMessage, result any, rerr *rpcError) {
	resp := jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: rerr}
	if rerr == nil {
		resp.Result = result
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("encoding response")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.output.Write(append(data, '\n')); err != nil {
		s.logger.Error().Err(err).Msg("writing response")
	}
}
