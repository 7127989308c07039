package plugin

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

// writePlugin creates <dir>/<name>/plugin.json and, when script is not
// empty, an executable shell script named run.sh.
func writePlugin(t *testing.T, dir, name, script string, actions ...string) string {
	t.Helper()

	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    actions,
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if script != "" {
		if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return pluginDir
}

func scriptPlugin(t *testing.T, script string) *Plugin {
	t.Helper()
	dir := writePlugin(t, t.TempDir(), "test-plugin", script, "test-action")
	return &Plugin{
		Manifest:   Manifest{Name: "test-plugin", Executable: "run.sh", Actions: []string{"test-action"}},
		Path:       dir,
		Executable: filepath.Join(dir, "run.sh"),
	}
}
