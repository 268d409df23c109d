package models

import "time"

// DeployChange is one content edit waiting to be published.
// A change with a slug is eligible for a lightning deploy.
type DeployChange struct {
	TimeISOString string `json:"timeISOString"`
	AuthorName    string `json:"authorName"`
	AuthorEmail   string `json:"authorEmail"`
	Message       string `json:"message"`
	Slug          string `json:"slug,omitempty"`
}

type DeployStatus struct {
	State              string     `json:"state"`
	QueueEmpty         bool       `json:"queueEmpty"`
	HasPending         bool       `json:"hasPending"`
	SuccessiveFailures int        `json:"successiveFailures"`
	LastError          string     `json:"lastError,omitempty"`
	LastDeployAt       *time.Time `json:"lastDeployAt,omitempty"`
}
