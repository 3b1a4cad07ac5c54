package hookdispatch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ProjectScopeOverridesBuiltinByName(t *testing.T) {
	projectDir := t.TempDir()
	hooksDir := filepath.Join(projectDir, ".jimi", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yamlContent := `
hooks:
  - name: lint
    event: pre_tool_call
    type: command
    command: ["project-lint"]
`
	if err := os.WriteFile(filepath.Join(hooksDir, "hooks.yaml"), []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write hooks.yaml: %v", err)
	}

	defaults := []HookSpec{
		{Name: "lint", Event: PreToolCall, Type: ExecCommand, Command: []string{"builtin-lint"}},
		{Name: "notify", Event: OnSessionEnd, Type: ExecCommand, Command: []string{"builtin-notify"}},
	}

	specs, err := Load(defaults, projectDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs (override + untouched), got %d: %+v", len(specs), specs)
	}

	byName := make(map[string]HookSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	lint, ok := byName["lint"]
	if !ok {
		t.Fatal("expected lint hook to survive")
	}
	if len(lint.Command) == 0 || lint.Command[0] != "project-lint" {
		t.Fatalf("expected project scope to override builtin lint command, got %+v", lint)
	}
	if lint.Source != "project" {
		t.Fatalf("expected overriding spec's Source to be project, got %q", lint.Source)
	}

	notify, ok := byName["notify"]
	if !ok {
		t.Fatal("expected untouched builtin hook to survive")
	}
	if notify.Source != "builtin" {
		t.Fatalf("expected untouched hook to keep builtin source, got %q", notify.Source)
	}
}

func TestLoad_IgnoresNonYAMLFiles(t *testing.T) {
	projectDir := t.TempDir()
	hooksDir := filepath.Join(projectDir, ".jimi", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hooksDir, "README.md"), []byte("not yaml"), 0o644); err != nil {
		t.Fatalf("write README.md: %v", err)
	}

	specs, err := Load(nil, projectDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(specs) != 0 {
		t.Fatalf("expected no specs from a non-yaml file, got %+v", specs)
	}
}
