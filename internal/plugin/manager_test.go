package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writePlugin creates root/<name>/plugin.json and, when script is non-empty,
// an executable shell script named after the manifest executable.
func writePlugin(t *testing.T, root string, manifest Manifest, script string) string {
	t.Helper()

	dir := filepath.Join(root, manifest.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, manifest.Executable), []byte(script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return dir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writePlugin(t, tmpDir, Manifest{
		Name:        "keyboard",
		Version:     "1.0.0",
		Description: "Sends key presses",
		Executable:  "keyboard",
		Actions:     []string{"press", "hotkey"},
	}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "keyboard" {
		t.Errorf("expected plugin name 'keyboard', got %q", plugin.Manifest.Name)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "keyboard") {
		t.Errorf("unexpected executable %q", plugin.Executable)
	}
	if !plugin.Manifest.Supports("hotkey") || plugin.Manifest.Supports("scroll") {
		t.Errorf("unexpected action support for %v", plugin.Manifest.Actions)
	}
}

func TestManager_Discover_SortedList(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"plugin-b", "plugin-a"} {
		writePlugin(t, tmpDir, Manifest{Name: name, Executable: name}, "")
	}

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "plugin-a" {
		t.Errorf("expected sorted list, got %q first", plugins[0].Manifest.Name)
	}
}

func TestManager_Discover_SkipsBrokenEntries(t *testing.T) {
	tmpDir := t.TempDir()

	// no manifest
	os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755)

	// invalid JSON
	bad := filepath.Join(tmpDir, "bad")
	os.MkdirAll(bad, 0755)
	os.WriteFile(filepath.Join(bad, ManifestFile), []byte("{not json"), 0644)

	// missing executable
	writePlugin(t, tmpDir, Manifest{Name: "noexec"}, "")

	// stray file at the top level
	os.WriteFile(filepath.Join(tmpDir, "README"), []byte("hi"), 0644)

	writePlugin(t, tmpDir, Manifest{Name: "good", Executable: "good"}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		t.Errorf("expected only the good plugin, got %d plugins", len(plugins))
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, Manifest{Name: "keyboard", Executable: "keyboard"}, "")

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("keyboard")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Name != "keyboard" {
		t.Errorf("expected keyboard, got %q", plugin.Manifest.Name)
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "nope"))

	if err := manager.Discover(); err != nil {
		t.Errorf("Discover() on missing dir should return nil, got %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
	if manager.PluginDir() == "" {
		t.Error("PluginDir() should be preserved")
	}
}
