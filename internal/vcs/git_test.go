package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "--quiet"},
		{"config", "user.email", "bot@example.org"},
		{"config", "user.name", "Publish Bot"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	return dir
}

func TestGitClient_CommitAndRevParse(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	g := NewGitClient(dir, 10*time.Second)
	ctx := context.Background()

	_, err := g.RevParseHead(ctx)
	assert.Error(t, err, "no commits yet")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	require.NoError(t, g.AddAll(ctx))

	msg := "Deploy 2026-01-02T03:04:05Z\nUpdate chart\n\n\nCo-authored-by: Ada <ada@example.org>"
	require.NoError(t, g.Commit(ctx, msg))

	sha, err := g.RevParseHead(ctx)
	require.NoError(t, err)
	assert.Len(t, sha, 40)

	cmd := exec.Command("git", "log", "-1", "--format=%B")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Co-authored-by: Ada <ada@example.org>")
}

func TestGitClient_CommitCleanTree(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	g := NewGitClient(dir, 10*time.Second)

	err := g.Commit(context.Background(), "Deploy")
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestGitClient_NotARepository(t *testing.T) {
	requireGit(t)
	g := NewGitClient(t.TempDir(), 0)
	_, err := g.RevParseHead(context.Background())
	assert.Error(t, err)
}
