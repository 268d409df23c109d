package deploy

import (
	"fmt"
	"publishd/internal/models"
	"strings"
	"time"
)

// ISOTimeLayout matches JavaScript's Date.toISOString output.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// BuildCommitMessage aggregates a batch into the message of the deploy
// commit: a header, one line per change and the co-author trailers.
func BuildCommitMessage(now time.Time, changes []models.DeployChange) string {
	messages := make([]string, 0, len(changes))
	coAuthors := make([]string, 0, len(changes))
	seen := make(map[string]struct{}, len(changes))
	for _, c := range changes {
		messages = append(messages, c.Message)
		if c.AuthorName == "" && c.AuthorEmail == "" {
			continue
		}
		line := fmt.Sprintf("Co-authored-by: %s <%s>", c.AuthorName, c.AuthorEmail)
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		coAuthors = append(coAuthors, line)
	}

	return "Deploy " + now.UTC().Format(ISOTimeLayout) + "\n" +
		strings.Join(messages, "\n") + "\n\n\n" +
		strings.Join(coAuthors, "\n")
}

// LightningChanges returns the batch when every change names a slug and
// lightning deploys are enabled, nil when a full bake is required.
func LightningChanges(changes []models.DeployChange, enabled bool) []models.DeployChange {
	if !enabled || len(changes) == 0 {
		return nil
	}
	for _, c := range changes {
		if c.Slug == "" {
			return nil
		}
	}
	return changes
}

func bakeKind(lightning []models.DeployChange) string {
	if len(lightning) > 0 {
		return "lightning"
	}
	return "full"
}
