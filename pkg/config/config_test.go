package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "slither.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
trace = true

[repl]
prompt = "py> "

[cache]
enabled = false
dir = "bc"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Trace {
		t.Error("trace not set")
	}
	if c.Repl.Prompt != "py> " {
		t.Errorf("prompt = %q, want %q", c.Repl.Prompt, "py> ")
	}
	// Unset fields keep defaults.
	if c.Repl.ContinuationPrompt != "... " {
		t.Errorf("continuation prompt = %q, want default", c.Repl.ContinuationPrompt)
	}
	if c.Cache.Enabled {
		t.Error("cache still enabled")
	}
	if got, want := c.CacheDir(), filepath.Join(c.Dir, "bc"); got != want {
		t.Errorf("cache dir = %q, want %q", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("load of empty dir succeeded, want error")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "trace = [broken")
	if _, err := Load(dir); err == nil {
		t.Error("load of malformed file succeeded, want error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "trace = true\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !c.Trace {
		t.Error("config found in ancestor dir not loaded")
	}
}

func TestFindAndLoadFallsBackToDefaults(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Repl.Prompt != ">>> " {
		t.Errorf("prompt = %q, want default", c.Repl.Prompt)
	}
	if !c.Cache.Enabled {
		t.Error("cache disabled by default, want enabled")
	}
}
