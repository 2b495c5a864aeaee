package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeholderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CG_CONFIG", "")
	t.Setenv("CG_PROVIDERS_ORDER", "placeholder")
	t.Setenv("CG_PLACEHOLDER_ENABLED", "true")
	t.Setenv("CG_LOG_LEVEL", "error")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateFromFile(t *testing.T) {
	placeholderEnv(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Goroutines are cheap. Channels connect them."), 0o644))

	out, err := execute(t, "", "generate", "--file", path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc["course"], "[placeholder]")
	assert.NotEmpty(t, doc["modules"])
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	placeholderEnv(t)
	_, err := execute(t, "   ", "generate", "--file", "-")
	assert.ErrorContains(t, err, "empty")
}

func TestModifyFromStdin(t *testing.T) {
	placeholderEnv(t)
	out, err := execute(t, `{"title":"Intro","bullets":["a","b"]}`, "modify", "--type", "slide", "--file", "-", "--prompt", "shorter")
	require.NoError(t, err)
	var slide map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &slide))
	assert.Equal(t, "[placeholder] Intro", slide["title"])
}

func TestModifyRejectsUnknownType(t *testing.T) {
	placeholderEnv(t)
	_, err := execute(t, "{}", "modify", "--type", "quiz", "--file", "-", "--prompt", "x")
	assert.Error(t, err)
}

func TestLessonPrintsContent(t *testing.T) {
	placeholderEnv(t)
	out, err := execute(t, "", "lesson", "--title", "Channels", "--summary", "buffered")
	require.NoError(t, err)
	assert.Contains(t, out, "Channels")
}

func TestProvidersMarksCurrent(t *testing.T) {
	placeholderEnv(t)
	out, err := execute(t, "", "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "* placeholder")
	assert.Contains(t, out, "available")
}

func TestNoProvidersIsAnError(t *testing.T) {
	t.Setenv("CG_CONFIG", "")
	t.Setenv("CG_PROVIDERS_ORDER", "placeholder")
	t.Setenv("CG_PLACEHOLDER_ENABLED", "false")
	_, err := execute(t, "", "providers")
	assert.Error(t, err)
}

func TestDoctorReportsEachCheck(t *testing.T) {
	placeholderEnv(t)
	t.Setenv("CG_DB_DSN", "")
	t.Setenv("CG_REDIS_URL", "")
	t.Setenv("CG_QDRANT_URL", "")
	out, err := execute(t, "", "doctor", "--timeout", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "database: FAIL (missing database dsn)")
	assert.Contains(t, out, "redis: FAIL (not configured)")
	assert.Contains(t, out, "qdrant: FAIL (not configured)")
	assert.Contains(t, out, "placeholder")
}
