// Package paths resolves the files the companion shares with the dictation
// pipeline. The database and the .env file live next to the executable; the
// debug log has a fixed location in /tmp.
package paths

import (
	"os"
	"path/filepath"
)

// DebugLog is where the dictation pipeline appends its debug output.
const DebugLog = "/tmp/voice-input-debug.log"

// ExecutableDir returns the directory of the running binary, resolving
// symlinks. Falls back to the working directory.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// DefaultDBPath returns the default history database path.
func DefaultDBPath() string {
	return filepath.Join(ExecutableDir(), "history.db")
}

// DefaultEnvPath returns the default configuration file path.
func DefaultEnvPath() string {
	return filepath.Join(ExecutableDir(), ".env")
}
