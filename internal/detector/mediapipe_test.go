package detector

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

// writeOneShotService writes a helper that answers a single request and
// then exits, appending a line to the returned file on every launch.
func writeOneShotService(t *testing.T) (script, launches string) {
	t.Helper()
	dir := t.TempDir()
	script = filepath.Join(dir, "service.sh")
	launches = filepath.Join(dir, "launches")

	body := "#!/bin/sh\n" +
		"echo started >> '" + launches + "'\n" +
		"echo '{\"hands\": []}'\n" +
		"exec sleep 1\n"
	if err := os.WriteFile(script, []byte(body), 0o644); err != nil {
		t.Fatalf("write service: %v", err)
	}
	return script, launches
}

func TestMediaPipeDetector_RestartsExitedService(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	script, launches := writeOneShotService(t)
	d := &MediaPipeDetector{config: DefaultConfig(), python: "/bin/sh", script: script}
	defer d.Close()

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	for i := 0; i < 2; i++ {
		hands, err := d.Detect(&frame)
		if err != nil {
			t.Fatalf("Detect() #%d error = %v", i+1, err)
		}
		if len(hands) != 0 {
			t.Errorf("Detect() #%d hands = %d, want 0", i+1, len(hands))
		}
	}

	data, err := os.ReadFile(launches)
	if err != nil {
		t.Fatalf("read launches: %v", err)
	}
	if got := strings.Count(string(data), "started"); got != 2 {
		t.Errorf("service launched %d times, want 2", got)
	}
}

func TestMediaPipeDetector_FailedStartIsRetried(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	d := &MediaPipeDetector{
		config: DefaultConfig(),
		python: filepath.Join(t.TempDir(), "missing-python"),
		script: "service.py",
	}
	defer d.Close()

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if _, err := d.Detect(&frame); err == nil {
		t.Fatal("Detect() error = nil with a missing interpreter")
	}
	if d.started {
		t.Error("detector marked started after a failed launch")
	}

	script, _ := writeOneShotService(t)
	d.python, d.script = "/bin/sh", script
	if _, err := d.Detect(&frame); err != nil {
		t.Errorf("Detect() after fixing the interpreter error = %v", err)
	}
}
