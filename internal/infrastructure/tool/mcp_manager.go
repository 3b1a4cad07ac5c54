package tool

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
	"go.uber.org/zap"
)

// MCPServerInfo is a read-only view of a managed MCP server.
type MCPServerInfo struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Enabled   bool   `json:"enabled"`
	ToolCount int    `json:"tool_count"`
}

// MCPManager manages the lifecycle of MCP stdio servers: starting them,
// discovering and registering their tools, and persisting hot-added servers
// to the ~/.jimi/mcp.json sidecar (separate from the static list in
// config.yaml's agent.mcp.servers).
type MCPManager struct {
	adapters map[string]*MCPAdapter
	registry domaintool.Registry
	logger   *zap.Logger
	mu       sync.RWMutex
}

func NewMCPManager(registry domaintool.Registry, logger *zap.Logger) *MCPManager {
	return &MCPManager{
		adapters: make(map[string]*MCPAdapter),
		registry: registry,
		logger:   logger,
	}
}

// InitFromStatic starts and registers every enabled server from config.yaml.
func (m *MCPManager) InitFromStatic(servers []config.MCPServerConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if !srv.Enabled {
			continue
		}
		if err := m.addAndDiscover(ctx, srv.Name, strings.Fields(srv.Command)); err != nil {
			m.logger.Error("mcp server init failed", zap.String("name", srv.Name), zap.Error(err))
		}
	}
}

// InitFromSidecar starts and registers every enabled server persisted in mcp.json.
func (m *MCPManager) InitFromSidecar() {
	cfg, _, err := config.LoadMCPConfig(m.rawHomeDir())
	if err != nil {
		m.logger.Warn("failed to load mcp.json", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range cfg.Servers {
		if !srv.Enabled {
			continue
		}
		if err := m.addAndDiscover(ctx, srv.Name, strings.Fields(srv.Endpoint)); err != nil {
			m.logger.Error("mcp sidecar server init failed", zap.String("name", srv.Name), zap.Error(err))
		}
	}
}

// AddServer starts a new MCP server, registers its tools, and persists it
// to mcp.json. No restart needed.
func (m *MCPManager) AddServer(name string, command []string) error {
	m.mu.Lock()
	if _, exists := m.adapters[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("mcp server %q already exists", name)
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := m.addAndDiscover(ctx, name, command); err != nil {
		return err
	}
	return m.persistAdd(name, strings.Join(command, " "))
}

// RemoveServer unregisters a server's tools, stops it, and removes it from mcp.json.
func (m *MCPManager) RemoveServer(name string) error {
	m.mu.Lock()
	adapter, exists := m.adapters[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("mcp server %q not found", name)
	}
	delete(m.adapters, name)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if defs, err := adapter.DiscoverTools(ctx); err == nil {
		for _, def := range defs {
			_ = m.registry.Unregister(fmt.Sprintf("%s_%s", name, def.Name))
		}
	}
	_ = adapter.Close()

	m.logger.Info("mcp server removed", zap.String("name", name))
	return m.persistRemove(name)
}

// ListServers returns info about every server persisted in mcp.json.
func (m *MCPManager) ListServers() []MCPServerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, _, err := config.LoadMCPConfig(m.rawHomeDir())
	if err != nil {
		var infos []MCPServerInfo
		for name := range m.adapters {
			infos = append(infos, MCPServerInfo{Name: name, Enabled: true})
		}
		return infos
	}

	defs := m.registry.List()
	var infos []MCPServerInfo
	for _, srv := range cfg.Servers {
		toolCount := 0
		for _, def := range defs {
			if strings.HasPrefix(def.Name, srv.Name+"_") {
				toolCount++
			}
		}
		infos = append(infos, MCPServerInfo{Name: srv.Name, Command: srv.Endpoint, Enabled: srv.Enabled, ToolCount: toolCount})
	}
	return infos
}

// RefreshServer re-discovers and re-registers an existing server's tools.
func (m *MCPManager) RefreshServer(name string) error {
	m.mu.RLock()
	adapter, exists := m.adapters[name]
	m.mu.RUnlock()
	if !exists {
		return fmt.Errorf("mcp server %q not found", name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if defs, err := adapter.DiscoverTools(ctx); err == nil {
		for _, def := range defs {
			_ = m.registry.Unregister(fmt.Sprintf("%s_%s", name, def.Name))
		}
	}

	count, err := RegisterMCPTools(ctx, adapter, m.registry, m.logger)
	if err != nil {
		return err
	}
	m.logger.Info("mcp server refreshed", zap.String("name", name), zap.Int("tools", count))
	return nil
}

func (m *MCPManager) addAndDiscover(ctx context.Context, name string, command []string) error {
	adapter := NewMCPAdapter(name, command, m.logger)
	count, err := RegisterMCPTools(ctx, adapter, m.registry, m.logger)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.adapters[name] = adapter
	m.mu.Unlock()

	m.logger.Info("mcp server added", zap.String("name", name), zap.Int("tools", count))
	return nil
}

func (m *MCPManager) persistAdd(name, command string) error {
	cfg, path, _ := config.LoadMCPConfig(m.rawHomeDir())
	if cfg == nil {
		cfg = &config.MCPFileConfig{}
	}
	cfg.Servers = append(cfg.Servers, config.MCPServerEntry{Name: name, Endpoint: command, Enabled: true})
	return config.SaveMCPConfig(path, cfg)
}

func (m *MCPManager) persistRemove(name string) error {
	cfg, path, _ := config.LoadMCPConfig(m.rawHomeDir())
	if cfg == nil {
		return nil
	}
	filtered := cfg.Servers[:0]
	for _, s := range cfg.Servers {
		if s.Name != name {
			filtered = append(filtered, s)
		}
	}
	cfg.Servers = filtered
	return config.SaveMCPConfig(path, cfg)
}

func (m *MCPManager) rawHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
