// Package config reads and writes the .env file shared with the dictation
// pipeline. Only the six known keys survive a save; everything else is
// parsed into memory and dropped.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Known configuration keys.
const (
	KeyAPIKey        = "GROQ_API_KEY"
	KeyMicSource     = "MIC_SOURCE"
	KeyLanguage      = "LANGUAGE"
	KeyNotifications = "NOTIFICATIONS"
	KeyTrayIcon      = "TRAY_ICON"
	KeySystemPrompt  = "SYSTEM_PROMPT"
)

// entry describes one known key: its default and the comment block written
// above it.
type entry struct {
	key      string
	def      string
	comments []string
}

// known lists the keys in serialization order.
var known = []entry{
	{
		key: KeyAPIKey,
		comments: []string{
			"# Voice Input Configuration",
			"# Get your Groq API key from: https://console.groq.com/keys",
		},
	},
	{
		key: KeyMicSource,
		comments: []string{
			"# Selected microphone source (leave empty for default, or set via tray menu)",
			"# Run 'pactl list sources short' to see available sources",
		},
	},
	{
		key: KeyLanguage,
		comments: []string{
			`# Language for transcription (e.g., "de" for German, "en" for English)`,
			"# Leave empty for auto-detect",
		},
	},
	{
		key:      KeyNotifications,
		def:      "true",
		comments: []string{"# Show notifications (true/false, default: true)"},
	},
	{
		key:      KeyTrayIcon,
		def:      "true",
		comments: []string{"# Show tray icon (true/false, default: true)"},
	},
	{
		key:      KeySystemPrompt,
		def:      DefaultSystemPrompt,
		comments: []string{"# System prompt for LLM formatting (customize to improve output)"},
	},
}

// Keys returns the known keys in the order they are written.
func Keys() []string {
	keys := make([]string, len(known))
	for i, e := range known {
		keys[i] = e.key
	}
	return keys
}

// Defaults returns a fresh map holding the default value of every known key.
func Defaults() map[string]string {
	m := make(map[string]string, len(known))
	for _, e := range known {
		m[e.key] = e.def
	}
	return m
}

// Config is the in-memory view of a .env file. It is not safe for
// concurrent use.
type Config struct {
	path   string
	values map[string]string
}

// Open loads the file at path on top of the defaults. The returned Config is
// always usable: a missing file is not an error, and an unreadable file
// yields the defaults together with the read error so the caller can report
// it.
func Open(path string) (*Config, error) {
	c := &Config{path: path, values: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config: %w", err)
	}

	for k, v := range parse(string(data)) {
		c.values[k] = v
	}
	return c, nil
}

// Path returns the file the config was opened from.
func (c *Config) Path() string {
	return c.path
}

// Get returns the current value of key. Known keys always report ok; unknown
// keys only when they were present in the loaded file or set explicitly.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set overwrites key in memory. Nothing is written until Save.
func (c *Config) Set(key, value string) {
	c.values[key] = value
}

// Bool reports whether key holds exactly "true".
func (c *Config) Bool(key string) bool {
	return c.values[key] == "true"
}

// Save writes the known keys to the config path. The file is written to a
// temporary sibling first and renamed into place.
func (c *Config) Save() error {
	data := []byte(c.render())

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".env-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// render serializes the known keys with their comment headers.
func (c *Config) render() string {
	var out []byte
	for _, e := range known {
		for _, line := range e.comments {
			out = append(out, line...)
			out = append(out, '\n')
		}
		v, ok := c.values[e.key]
		if !ok {
			v = e.def
		}
		out = append(out, e.key...)
		out = append(out, '=')
		out = append(out, quote(v)...)
		out = append(out, '\n', '\n')
	}
	return string(out)
}
