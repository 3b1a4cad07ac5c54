package tool

import (
	"context"
	"fmt"
	"strings"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// Result aliases the domain result type so tool implementations in this
// package can write the shorter name.
type Result = domaintool.Result

// ExecuteCommandTool runs a shell command inside the process sandbox.
type ExecuteCommandTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewExecuteCommandTool(sb *sandbox.ProcessSandbox, logger *zap.Logger) *ExecuteCommandTool {
	return &ExecuteCommandTool{sandbox: sb, logger: logger}
}

func (t *ExecuteCommandTool) Name() string          { return "execute_command" }
func (t *ExecuteCommandTool) Kind() domaintool.Kind  { return domaintool.KindExecute }
func (t *ExecuteCommandTool) Description() string {
	return `Execute a shell command.
Commands time out after the configured tool timeout (30 seconds by default). A command that runs too long is killed and the call fails with a timeout error (exit code -1).
Prefer small, targeted commands. Avoid interactive or long-running processes (top, watch, tail -f).`
}

func (t *ExecuteCommandTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"work_dir": map[string]interface{}{
				"type":        "string",
				"description": "Optional working directory override",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return &Result{Success: false, Error: "command is required"}, fmt.Errorf("command is required")
	}
	if workDir, ok := args["work_dir"].(string); ok && workDir != "" {
		if err := t.sandbox.SetWorkDir(workDir); err != nil {
			return &Result{Success: false, Error: err.Error()}, err
		}
	}

	t.logger.Info("executing command", zap.String("command", command))

	result, err := t.sandbox.ExecuteShell(ctx, command)
	if err != nil {
		res := &Result{Success: false, Error: err.Error()}
		if result != nil {
			res.Output = result.Stderr
			res.Metadata = map[string]interface{}{"exit_code": result.ExitCode, "killed": result.Killed}
		}
		return res, nil
	}

	output := result.Stdout
	if result.Stderr != "" {
		output += "\n[stderr]\n" + result.Stderr
	}

	return &Result{
		Output:  output,
		Display: summarizeOutput(command, output, result.ExitCode, result.Duration.String()),
		Success: result.ExitCode == 0,
		Metadata: map[string]interface{}{
			"exit_code": result.ExitCode,
			"duration":  result.Duration.String(),
		},
	}, nil
}

func summarizeOutput(command, output string, exitCode int, duration string) string {
	if len(output) <= 2000 {
		return ""
	}
	lines := strings.Split(output, "\n")
	head, tail := 5, 5
	if head+tail >= len(lines) {
		head = len(lines) / 2
		tail = len(lines) - head
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "`%s`\n", truncateStr(command, 60))
	fmt.Fprintf(&sb, "exit=%d | %d lines | %s\n```\n", exitCode, len(lines), duration)
	for i := 0; i < head && i < len(lines); i++ {
		sb.WriteString(truncateStr(lines[i], 120) + "\n")
	}
	if head+tail < len(lines) {
		fmt.Fprintf(&sb, "... (%d lines omitted) ...\n", len(lines)-head-tail)
	}
	for i := len(lines) - tail; i < len(lines); i++ {
		if i >= head {
			sb.WriteString(truncateStr(lines[i], 120) + "\n")
		}
	}
	sb.WriteString("```")
	return sb.String()
}

func truncateStr(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// ReadFileTool reads a file, optionally restricted to a line range.
type ReadFileTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewReadFileTool(sb *sandbox.ProcessSandbox, logger *zap.Logger) *ReadFileTool {
	return &ReadFileTool{sandbox: sb, logger: logger}
}

func (t *ReadFileTool) Name() string         { return "read_file" }
func (t *ReadFileTool) Kind() domaintool.Kind { return domaintool.KindRead }
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file, optionally restricted to a line range."
}

func (t *ReadFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":       map[string]interface{}{"type": "string", "description": "Path to the file"},
			"start_line": map[string]interface{}{"type": "integer", "description": "1-indexed start line"},
			"end_line":   map[string]interface{}{"type": "integer", "description": "1-indexed end line"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return &Result{Success: false, Error: "path is required"}, fmt.Errorf("path is required")
	}

	var cmd string
	start, hasStart := args["start_line"].(float64)
	end, hasEnd := args["end_line"].(float64)
	switch {
	case hasStart && hasEnd:
		cmd = fmt.Sprintf("sed -n '%d,%dp' '%s'", int(start), int(end), path)
	case hasStart:
		cmd = fmt.Sprintf("tail -n +%d '%s'", int(start), path)
	default:
		cmd = fmt.Sprintf("cat '%s'", path)
	}

	result, err := t.sandbox.ExecuteShell(ctx, cmd)
	if err != nil {
		msg := err.Error()
		if result != nil {
			msg = result.Stderr
		}
		return &Result{Success: false, Error: msg}, nil
	}
	return &Result{Output: result.Stdout, Success: true, Metadata: map[string]interface{}{"path": path}}, nil
}

// WriteFileTool writes (or overwrites) a file's full contents.
type WriteFileTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewWriteFileTool(sb *sandbox.ProcessSandbox, logger *zap.Logger) *WriteFileTool {
	return &WriteFileTool{sandbox: sb, logger: logger}
}

func (t *WriteFileTool) Name() string         { return "write_file" }
func (t *WriteFileTool) Kind() domaintool.Kind { return domaintool.KindEdit }
func (t *WriteFileTool) Description() string {
	return "Write content to a file, creating it if missing and overwriting it otherwise."
}

func (t *WriteFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string", "description": "Path to the file"},
			"content": map[string]interface{}{"type": "string", "description": "Full file content"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return &Result{Success: false, Error: "path is required"}, fmt.Errorf("path is required")
	}
	content, ok := args["content"].(string)
	if !ok {
		return &Result{Success: false, Error: "content is required"}, fmt.Errorf("content is required")
	}

	cmd := fmt.Sprintf("cat > '%s' << 'JIMI_EOF'\n%s\nJIMI_EOF", path, content)
	result, err := t.sandbox.ExecuteShell(ctx, cmd)
	if err != nil {
		msg := err.Error()
		if result != nil {
			msg = result.Stderr
		}
		return &Result{Success: false, Error: msg}, nil
	}
	return &Result{
		Output:   fmt.Sprintf("wrote %s", path),
		Success:  true,
		Metadata: map[string]interface{}{"path": path, "bytes_written": len(content)},
	}, nil
}

// ListDirTool lists a directory's contents.
type ListDirTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewListDirTool(sb *sandbox.ProcessSandbox, logger *zap.Logger) *ListDirTool {
	return &ListDirTool{sandbox: sb, logger: logger}
}

func (t *ListDirTool) Name() string         { return "list_dir" }
func (t *ListDirTool) Kind() domaintool.Kind { return domaintool.KindRead }
func (t *ListDirTool) Description() string {
	return "List a directory's contents, optionally recursively (depth 3, capped to 100 entries)."
}

func (t *ListDirTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":      map[string]interface{}{"type": "string", "description": "Directory to list"},
			"recursive": map[string]interface{}{"type": "boolean", "description": "List recursively"},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		path = "."
	}
	recursive, _ := args["recursive"].(bool)

	var cmd string
	if recursive {
		cmd = fmt.Sprintf("find '%s' -maxdepth 3 \\( -type f -o -type d \\) | head -100", path)
	} else {
		cmd = fmt.Sprintf("ls -la '%s'", path)
	}

	result, err := t.sandbox.ExecuteShell(ctx, cmd)
	if err != nil {
		msg := err.Error()
		if result != nil {
			msg = result.Stderr
		}
		return &Result{Success: false, Error: msg}, nil
	}
	return &Result{Output: result.Stdout, Success: true, Metadata: map[string]interface{}{"path": path}}, nil
}

// SearchTool greps for a pattern in a file or directory tree.
type SearchTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewSearchTool(sb *sandbox.ProcessSandbox, logger *zap.Logger) *SearchTool {
	return &SearchTool{sandbox: sb, logger: logger}
}

func (t *SearchTool) Name() string         { return "grep_search" }
func (t *SearchTool) Kind() domaintool.Kind { return domaintool.KindSearch }
func (t *SearchTool) Description() string {
	return "Search for a regular-expression pattern in a file or, recursively, a directory tree."
}

func (t *SearchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern":   map[string]interface{}{"type": "string", "description": "Pattern to search for"},
			"path":      map[string]interface{}{"type": "string", "description": "File or directory to search"},
			"recursive": map[string]interface{}{"type": "boolean", "description": "Search recursively"},
		},
		"required": []string{"pattern", "path"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return &Result{Success: false, Error: "pattern is required"}, fmt.Errorf("pattern is required")
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		path = "."
	}
	recursive, _ := args["recursive"].(bool)

	var cmd string
	if recursive {
		cmd = fmt.Sprintf("grep -rn '%s' '%s' | head -50", pattern, path)
	} else {
		cmd = fmt.Sprintf("grep -n '%s' '%s' | head -50", pattern, path)
	}

	result, err := t.sandbox.ExecuteShell(ctx, cmd)
	if err != nil && (result == nil || result.ExitCode != 1) {
		msg := err.Error()
		if result != nil {
			msg = result.Stderr
		}
		return &Result{Success: false, Error: msg}, nil
	}
	if result == nil {
		return &Result{Success: false, Error: "no result from sandbox"}, nil
	}
	output := result.Stdout
	if output == "" {
		output = "no matches found"
	}
	return &Result{
		Output:   output,
		Success:  true,
		Metadata: map[string]interface{}{"pattern": pattern, "path": path},
	}, nil
}
