package tray

import (
	"testing"

	"github.com/ayusman/thumbscroll/internal/gesture"
)

func TestTitles(t *testing.T) {
	if got := toggleTitle(true); got != "● Enabled" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := toggleTitle(false); got != "○ Disabled" {
		t.Errorf("toggleTitle(false) = %q", got)
	}

	tests := []struct {
		label gesture.Label
		want  string
	}{
		{gesture.None, "Gesture: NONE"},
		{gesture.Like, "Gesture: LIKE"},
		{gesture.Dislike, "Gesture: DISLIKE"},
	}
	for _, tt := range tests {
		if got := gestureTitle(tt.label); got != tt.want {
			t.Errorf("gestureTitle(%v) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New(true)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("IsEnabled() = false after two toggles")
	}
}

func TestTray_SetEnabledDoesNotNotify(t *testing.T) {
	tr := New(true)
	called := false
	tr.OnToggle(func(bool) { called = true })

	tr.SetEnabled(false)

	if tr.IsEnabled() {
		t.Error("IsEnabled() = true after SetEnabled(false)")
	}
	if called {
		t.Error("SetEnabled must not call OnToggle")
	}
}

func TestTray_SetGesture(t *testing.T) {
	tr := New(false)
	if tr.Gesture() != gesture.None {
		t.Errorf("initial gesture = %v, want NONE", tr.Gesture())
	}

	tr.SetGesture(gesture.Dislike)

	if tr.Gesture() != gesture.Dislike {
		t.Errorf("Gesture() = %v, want DISLIKE", tr.Gesture())
	}
}

func TestTray_Status(t *testing.T) {
	tr := New(true)
	called := false
	tr.OnStatus(func() { called = true })

	tr.handleStatus()

	if !called {
		t.Error("OnStatus callback not called")
	}
}
