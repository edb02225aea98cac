package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fluestern/companion/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := db.Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	id, err := store.InsertRecording(ctx, db.Recording{WhisperOutput: "flüstern", LLMOutput: "Flüstern", Success: true})
	require.NoError(t, err)
	require.NoError(t, store.UpdateCorrection(ctx, id, "Flüstern!"))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-file", filepath.Join(t.TempDir(), "companion.log")))
	err := cmd.Execute()
	return out.String(), err
}

func TestCorrectionsCommand(t *testing.T) {
	out, err := execute(t, "corrections", "--db", seedDB(t))
	require.NoError(t, err)
	assert.Equal(t, "\"flüstern\" -> \"Flüstern!\"\n", out)
}

func TestPromptContextCommand(t *testing.T) {
	out, err := execute(t, "prompt-context", "--db", seedDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, `- When transcribed as "flüstern", the user meant: "Flüstern!"`)
}

func TestPromptContextCommandEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	out, err := execute(t, "prompt-context", "--db", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMissingDatabaseDirectoryFails(t *testing.T) {
	_, err := execute(t, "corrections", "--db", filepath.Join(t.TempDir(), "missing", "history.db"))
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "corrections", "--db", seedDB(t), "--log-level", "loud")
	assert.Error(t, err)
}

func TestLogJSONFlag(t *testing.T) {
	cmd := newRootCmd()
	logFile := filepath.Join(t.TempDir(), "companion.log")
	require.NoError(t, cmd.ParseFlags([]string{"--log-json", "--log-file", logFile}))

	o := loadOptions(cmd)
	assert.True(t, o.LogJSON)

	log, closer, err := o.logger()
	require.NoError(t, err)
	log.Info("starting", "db", "history.db")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "starting", entry["msg"])
	assert.Equal(t, "history.db", entry["db"])
}
