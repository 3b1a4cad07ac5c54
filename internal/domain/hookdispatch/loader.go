package hookdispatch

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// yamlHookFile is the on-disk shape of a hooks.yaml file: a flat list
// under a "hooks:" key.
type yamlHookFile struct {
	Hooks []HookSpec `yaml:"hooks"`
}

// Load reads hook definitions from three layered scopes, in order:
// built-in defaults, the user's ~/.jimi/hooks/ directory, then the
// current project's .jimi/hooks/ directory. Later scopes override
// earlier ones by Name; within a scope, a later definition of the same Name
// replaces an earlier one as well.
func Load(defaults []HookSpec, projectDir string) ([]HookSpec, error) {
	byName := make(map[string]HookSpec)
	order := make([]string, 0)

	apply := func(specs []HookSpec, scope string) {
		for _, s := range specs {
			s.Source = scope
			if _, exists := byName[s.Name]; !exists {
				order = append(order, s.Name)
			}
			byName[s.Name] = s
		}
	}

	apply(defaults, "builtin")

	if home, err := os.UserHomeDir(); err == nil {
		apply(loadDir(filepath.Join(home, ".jimi", "hooks")), "user")
	}

	if projectDir != "" {
		apply(loadDir(filepath.Join(projectDir, ".jimi", "hooks")), "project")
	}

	out := make([]HookSpec, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func loadDir(dir string) []HookSpec {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var specs []HookSpec
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var f yamlHookFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			continue
		}
		specs = append(specs, f.Hooks...)
	}
	return specs
}

// Watcher reloads hooks into a Dispatcher whenever any file under either
// watched directory changes, via fsnotify — the same
// mechanism the gateway uses for its config hot-reload.
type Watcher struct {
	fsw        *fsnotify.Watcher
	dispatcher *Dispatcher
	defaults   []HookSpec
	projectDir string
	logger     *zap.Logger
}

// NewWatcher builds (but does not start) a hook-directory watcher.
func NewWatcher(dispatcher *Dispatcher, defaults []HookSpec, projectDir string, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, dispatcher: dispatcher, defaults: defaults, projectDir: projectDir, logger: logger}

	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".jimi", "hooks")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			_ = fsw.Add(dir)
		}
	}
	if projectDir != "" {
		dir := filepath.Join(projectDir, ".jimi", "hooks")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			_ = fsw.Add(dir)
		}
	}
	return w, nil
}

// Run reloads and applies hooks on every filesystem event until stop is
// closed. Call once as a background goroutine (see pkg/safego).
func (w *Watcher) Run(stop <-chan struct{}) {
	defer w.fsw.Close()
	w.reload()
	for {
		select {
		case <-stop:
			return
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("hook watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) reload() {
	specs, err := Load(w.defaults, w.projectDir)
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("hook reload failed", zap.Error(err))
		}
		return
	}
	w.dispatcher.SetHooks(specs)
	if w.logger != nil {
		w.logger.Info("hooks reloaded", zap.Int("count", len(specs)))
	}
}
