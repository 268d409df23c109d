package deploy

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"publishd/internal/models"
	"publishd/internal/providers"
	"publishd/internal/structures"
	"publishd/internal/vcs"
	"strings"
)

const (
	slugPlaceholder = "{slug}"
	outputTailBytes = 2048
)

// BakerInterface renders the site and publishes the result. A non-empty
// lightning list asks for an incremental bake of those pages only.
type BakerInterface interface {
	BakeAndDeploy(ctx context.Context, commitMessage string, lightning []models.DeployChange) error
}

// SiteBaker runs the configured bake commands in the site repository and
// commits the output with git.
type SiteBaker struct {
	dir              string
	fullCommand      []string
	lightningCommand []string
	push             bool
	git              vcs.GitClientInterface
	logger           providers.Logger
}

func NewSiteBaker(conf *structures.Config, logger providers.Logger) BakerInterface {
	var git vcs.GitClientInterface
	if conf.Deploy.SiteRepoDir != "" {
		git = vcs.NewGitClient(conf.Deploy.SiteRepoDir, conf.Deploy.GitTimeout)
	}
	return newSiteBaker(conf.Deploy, git, logger)
}

func newSiteBaker(conf structures.DeployConfig, git vcs.GitClientInterface, logger providers.Logger) *SiteBaker {
	return &SiteBaker{
		dir:              conf.SiteRepoDir,
		fullCommand:      conf.FullBakeCommand,
		lightningCommand: conf.LightningBakeCommand,
		push:             conf.GitPush,
		git:              git,
		logger:           logger,
	}
}

func (b *SiteBaker) BakeAndDeploy(ctx context.Context, commitMessage string, lightning []models.DeployChange) error {
	if err := b.bake(ctx, lightning); err != nil {
		return err
	}
	if b.git == nil {
		return nil
	}
	return b.publish(ctx, commitMessage)
}

func (b *SiteBaker) bake(ctx context.Context, lightning []models.DeployChange) error {
	if len(lightning) > 0 && len(b.lightningCommand) > 0 {
		seen := map[string]bool{}
		for _, change := range lightning {
			if seen[change.Slug] {
				continue
			}
			seen[change.Slug] = true
			if err := b.run(ctx, expandSlug(b.lightningCommand, change.Slug)); err != nil {
				return fmt.Errorf("baking %s: %w", change.Slug, err)
			}
		}
		return nil
	}
	if len(b.fullCommand) == 0 {
		return errors.New("no full bake command configured")
	}
	return b.run(ctx, b.fullCommand)
}

func (b *SiteBaker) publish(ctx context.Context, commitMessage string) error {
	if err := b.git.AddAll(ctx); err != nil {
		return err
	}
	err := b.git.Commit(ctx, commitMessage)
	if errors.Is(err, vcs.ErrNothingToCommit) {
		b.logger.Infof(providers.TypeDeploy, "Bake produced no changes, nothing to publish")
		return nil
	}
	if err != nil {
		return err
	}
	if !b.push {
		return nil
	}
	return b.git.Push(ctx)
}

func (b *SiteBaker) run(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = b.dir
	b.logger.Debugf(providers.TypeDeploy, "Running %s", strings.Join(argv, " "))
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", argv[0], ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, tail(out))
	}
	return nil
}

func expandSlug(argv []string, slug string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, slugPlaceholder, slug)
	}
	return out
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > outputTailBytes {
		s = "..." + s[len(s)-outputTailBytes:]
	}
	return s
}
