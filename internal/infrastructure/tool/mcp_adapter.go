package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// MCPToolDef is one tool as discovered from an MCP server's tools/list call.
type MCPToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// MCPAdapter bridges a single MCP server, reached over its stdio transport
// (the server is a child process; requests and responses are newline-
// delimited JSON-RPC 2.0 frames on its stdin/stdout), into the tool layer.
type MCPAdapter struct {
	name    string
	command []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner

	nextID atomic.Int64
	logger *zap.Logger
}

// NewMCPAdapter creates an adapter for an MCP server started by running command.
func NewMCPAdapter(name string, command []string, logger *zap.Logger) *MCPAdapter {
	return &MCPAdapter{name: name, command: command, logger: logger}
}

func (a *MCPAdapter) Name() string { return a.name }

type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ensureStarted lazily spawns the MCP server process on first use.
func (a *MCPAdapter) ensureStarted(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cmd != nil {
		return nil
	}
	if len(a.command) == 0 {
		return fmt.Errorf("MCP server %q has no command configured", a.name)
	}

	cmd := exec.CommandContext(ctx, a.command[0], a.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mcp %s: stdin pipe: %w", a.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("mcp %s: stdout pipe: %w", a.name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mcp %s: start: %w", a.name, err)
	}

	a.cmd = cmd
	a.stdin = stdin
	a.scanner = bufio.NewScanner(stdout)
	a.scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return nil
}

// call sends one JSON-RPC request and reads the matching response line.
func (a *MCPAdapter) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := a.ensureStarted(ctx); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID.Add(1)
	req := jsonRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := a.stdin.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("mcp %s: write request: %w", a.name, err)
	}

	for a.scanner.Scan() {
		text := strings.TrimSpace(a.scanner.Text())
		if text == "" {
			continue
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal([]byte(text), &resp); err != nil {
			a.logger.Warn("mcp: unparseable line", zap.String("server", a.name), zap.String("line", text))
			continue
		}
		if resp.ID != id {
			continue // stale/out-of-order response, keep reading
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("mcp %s: %s (code %d)", a.name, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	}
	if err := a.scanner.Err(); err != nil {
		return nil, fmt.Errorf("mcp %s: read response: %w", a.name, err)
	}
	return nil, fmt.Errorf("mcp %s: server closed stdout without responding", a.name)
}

// DiscoverTools lists the tools this MCP server exposes.
func (a *MCPAdapter) DiscoverTools(ctx context.Context) ([]MCPToolDef, error) {
	raw, err := a.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: tools/list: %w", a.name, err)
	}
	var result struct {
		Tools []MCPToolDef `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp %s: parse tools/list: %w", a.name, err)
	}
	return result.Tools, nil
}

// CallTool invokes one tool by name and returns its textual result.
func (a *MCPAdapter) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	raw, err := a.call(ctx, "tools/call", map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		return "", err
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return string(raw), nil
	}
	var sb strings.Builder
	for _, c := range result.Content {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

// Close terminates the MCP server process, if running.
func (a *MCPAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stdin != nil {
		_ = a.stdin.Close()
	}
	if a.cmd != nil && a.cmd.Process != nil {
		return a.cmd.Process.Kill()
	}
	return nil
}
