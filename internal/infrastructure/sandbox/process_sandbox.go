package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config configures one ProcessSandbox instance.
type Config struct {
	WorkDir       string
	Timeout       time.Duration
	AllowedBins   []string
	EnableNetwork bool
	TempDir       string
}

// DefaultConfig returns a sandbox config rooted at the real user HOME.
// Process-group isolation and a hard timeout are the only isolation
// guarantees — this is not filesystem isolation.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	if homeDir == "" {
		homeDir = "/tmp/jimi-sandbox"
	}
	return &Config{
		WorkDir: homeDir,
		Timeout: 60 * time.Second,
		AllowedBins: []string{
			"bash", "sh",
			"ls", "cat", "head", "tail", "grep", "awk", "sed",
			"find", "wc", "sort", "uniq", "cut", "tr",
			"cp", "mv", "rm", "mkdir", "touch", "chmod",
			"go", "python", "python3", "node", "npm", "npx",
			"git", "make",
			"pwd", "whoami", "date", "env", "echo", "printf",
			"curl", "wget",
		},
		EnableNetwork: true,
		TempDir:       "/tmp/jimi-sandbox-tmp",
	}
}

// ProcessSandbox runs commands in their own process group with a timeout
// and an allow-listed binary set.
type ProcessSandbox struct {
	config *Config
	logger *zap.Logger
}

// NewProcessSandbox creates a sandbox, ensuring its work and temp dirs exist.
func NewProcessSandbox(config *Config, logger *zap.Logger) (*ProcessSandbox, error) {
	if err := os.MkdirAll(config.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if err := os.MkdirAll(config.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &ProcessSandbox{config: config, logger: logger}, nil
}

// Result is one command's captured output.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Killed   bool
}

// Execute runs an allow-listed binary with the given args.
func (s *ProcessSandbox) Execute(ctx context.Context, command string, args []string) (*Result, error) {
	startTime := time.Now()

	if !s.isAllowed(command) {
		return nil, fmt.Errorf("command %q is not allowed", command)
	}

	cmdPath, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("command not found: %s", command)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, cmdPath, args...)
	cmd.Dir = s.config.WorkDir
	cmd.Env = s.buildEnvironment()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.Killed = true
		result.ExitCode = -1
		return result, fmt.Errorf("command timed out after %v", s.config.Timeout)
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("execution failed: %w", err)
		}
	}

	return result, nil
}

// ExecuteShell runs a command string through bash -c.
func (s *ProcessSandbox) ExecuteShell(ctx context.Context, command string) (*Result, error) {
	return s.Execute(ctx, "bash", []string{"-c", command})
}

func (s *ProcessSandbox) isAllowed(command string) bool {
	base := filepath.Base(command)
	for _, allowed := range s.config.AllowedBins {
		if allowed == base || allowed == command {
			return true
		}
	}
	return false
}

func (s *ProcessSandbox) buildEnvironment() []string {
	sysPath := os.Getenv("PATH")
	if sysPath == "" {
		sysPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	}
	realHome, _ := os.UserHomeDir()
	if realHome == "" {
		realHome = s.config.WorkDir
	}
	env := []string{
		"PATH=" + sysPath,
		"HOME=" + realHome,
		"TMPDIR=" + s.config.TempDir,
		"LANG=en_US.UTF-8",
		"LC_ALL=en_US.UTF-8",
		"USER=" + os.Getenv("USER"),
	}
	if s.config.EnableNetwork {
		if proxy := os.Getenv("HTTP_PROXY"); proxy != "" {
			env = append(env, "HTTP_PROXY="+proxy)
		}
		if proxy := os.Getenv("HTTPS_PROXY"); proxy != "" {
			env = append(env, "HTTPS_PROXY="+proxy)
		}
	}
	return env
}

// SetWorkDir changes the sandbox's working directory.
func (s *ProcessSandbox) SetWorkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("invalid work dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("work dir is not a directory: %s", dir)
	}
	s.config.WorkDir = dir
	return nil
}

// GetWorkDir returns the sandbox's current working directory.
func (s *ProcessSandbox) GetWorkDir() string { return s.config.WorkDir }

// Cleanup removes temp script files left by ExecuteScript-style callers.
func (s *ProcessSandbox) Cleanup() error {
	entries, err := os.ReadDir(s.config.TempDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "script-") {
			os.Remove(filepath.Join(s.config.TempDir, entry.Name()))
		}
	}
	return nil
}
