package archival

import (
	"context"
	"publishd/internal/archival/interfaces"
	"publishd/internal/providers"
	"publishd/internal/structures"
	"publishd/internal/vcs"
	"sort"
)

// GitProvenance resolves the checked-out commit of every configured repository.
type GitProvenance struct {
	repos  map[string]vcs.GitClientInterface
	logger providers.Logger
}

func NewGitProvenance(conf *structures.Config, logger providers.Logger) interfaces.ProvenanceInterface {
	repos := make(map[string]vcs.GitClientInterface, len(conf.Archive.Repos))
	for name, dir := range conf.Archive.Repos {
		repos[name] = vcs.NewGitClient(dir, conf.Deploy.GitTimeout)
	}
	return &GitProvenance{repos: repos, logger: logger}
}

// CommitShas never fails. A repository whose HEAD cannot be resolved is
// left out of the result.
func (p *GitProvenance) CommitShas(ctx context.Context) map[string]string {
	names := make([]string, 0, len(p.repos))
	for name := range p.repos {
		names = append(names, name)
	}
	sort.Strings(names)

	shas := make(map[string]string, len(names))
	for _, name := range names {
		sha, err := p.repos[name].RevParseHead(ctx)
		if err != nil {
			p.logger.Warnf(providers.TypeArchive, "No commit for %s, omitting from manifests: %s", name, err)
			continue
		}
		shas[name] = sha
	}
	return shas
}
