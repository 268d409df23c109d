package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrNothingToCommit is returned by Commit when the work tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

type GitClientInterface interface {
	RevParseHead(ctx context.Context) (string, error)
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
}

// GitClient shells out to git in one repository. Every call is bounded by
// timeout in addition to the caller's context.
type GitClient struct {
	repoPath string
	timeout  time.Duration
}

func NewGitClient(repoPath string, timeout time.Duration) *GitClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GitClient{repoPath: repoPath, timeout: timeout}
}

func (g *GitClient) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git %s: timeout after %v", args[0], g.timeout)
		}
		return stdout.String(), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (g *GitClient) RevParseHead(ctx context.Context) (string, error) {
	sha, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving HEAD in %s: %w", g.repoPath, err)
	}
	return sha, nil
}

func (g *GitClient) AddAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", "-A")
	return err
}

// Commit records the staged tree. The message is passed on stdin so that
// multi-line messages with trailers survive unchanged.
func (g *GitClient) Commit(ctx context.Context, message string) error {
	status, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if status == "" {
		return ErrNothingToCommit
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "commit", "--quiet", "-F", "-")
	cmd.Dir = g.repoPath
	cmd.Stdin = strings.NewReader(message)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("git commit: timeout after %v", g.timeout)
		}
		return fmt.Errorf("git commit: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (g *GitClient) Push(ctx context.Context) error {
	_, err := g.run(ctx, "push", "--quiet")
	return err
}
