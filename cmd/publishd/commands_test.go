package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (configPath, queueFile string) {
	t.Helper()
	dir := t.TempDir()
	queueFile = filepath.Join(dir, "queue", ".queue")
	body := strings.Join([]string{
		"webServer:",
		"  host: 127.0.0.1",
		"  port: 8090",
		"logger:",
		"  level: info",
		"  mode: 0644",
		"  dir: " + dir,
		"database:",
		"  driver: sqlite",
		"  dsn: " + filepath.Join(dir, "publishd.db"),
		"  migrateSources: true",
		"deploy:",
		"  queueFile: " + queueFile,
		"  fullBakeCommand: [\"true\"]",
	}, "\n")
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0644))
	return configPath, queueFile
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEnqueueThenDeploy(t *testing.T) {
	configPath, queueFile := writeConfig(t)

	out, err := run(t, "enqueue", "--config", configPath, "-m", "Updated chart", "--slug", "co2", "--author-name", "Ada", "--author-email", "ada@example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "queued")

	data, err := os.ReadFile(queueFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Updated chart"`)
	assert.Contains(t, string(data), `"slug":"co2"`)

	out, err = run(t, "deploy", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"queueEmpty": true`)
	assert.Contains(t, out, `"hasPending": false`)
}

func TestEnqueueRequiresMessage(t *testing.T) {
	configPath, _ := writeConfig(t)
	_, err := run(t, "enqueue", "--config", configPath)
	assert.Error(t, err)
}

func TestArchiveEmptyDatabase(t *testing.T) {
	configPath, _ := writeConfig(t)
	out, err := run(t, "archive", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"scanned": 0`)
}

func TestUnknownConfig(t *testing.T) {
	_, err := run(t, "deploy", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
