// Package main provides a scroll plugin. It scrolls with xdotool on Linux
// and with System Events arrow keys on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Label  string          `json:"label"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ScrollParams carries the signed scroll amount. Positive scrolls up.
type ScrollParams struct {
	Units int `json:"units"`
}

// X11 wheel buttons.
const (
	buttonWheelUp   = "4"
	buttonWheelDown = "5"
)

// macOS virtual key codes.
const (
	keyCodeUp   = 126
	keyCodeDown = 125
)

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "scroll":
		if err := handleScroll(req.Params); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

func handleScroll(params json.RawMessage) error {
	var p ScrollParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}
	if p.Units == 0 {
		return nil
	}

	name, args, err := scrollCommand(runtime.GOOS, p.Units)
	if err != nil {
		return err
	}
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// scrollCommand builds the platform command that scrolls by units.
func scrollCommand(goos string, units int) (string, []string, error) {
	count := units
	if count < 0 {
		count = -count
	}

	switch goos {
	case "linux":
		button := buttonWheelUp
		if units < 0 {
			button = buttonWheelDown
		}
		return "xdotool", []string{"click", "--repeat", strconv.Itoa(count), button}, nil
	case "darwin":
		code := keyCodeUp
		if units < 0 {
			code = keyCodeDown
		}
		script := fmt.Sprintf(`tell application "System Events" to repeat %d times
key code %d
end repeat`, count, code)
		return "osascript", []string{"-e", script}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
