package controllers

import (
	"net/http"
	"publishd/internal/deploy"
	"publishd/internal/models"
	"publishd/internal/providers"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type DeployController struct {
	logger       providers.Logger
	queue        deploy.DeployQueueInterface
	orchestrator deploy.OrchestratorInterface
	now          func() time.Time
}

func NewDeployController(logger providers.Logger, queue deploy.DeployQueueInterface, orchestrator deploy.OrchestratorInterface) *DeployController {
	return &DeployController{
		logger:       logger,
		queue:        queue,
		orchestrator: orchestrator,
		now:          time.Now,
	}
}

// EnqueueChange appends a change to the deploy queue and wakes the orchestrator.
func (dc *DeployController) EnqueueChange(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var change models.DeployChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(change.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if change.TimeISOString == "" {
		change.TimeISOString = dc.now().UTC().Format(deploy.ISOTimeLayout)
	}

	if err := dc.queue.Enqueue(change); err != nil {
		dc.logger.Errorf(providers.TypeDeploy, "Enqueue failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	dc.orchestrator.Trigger()

	gson, err := json.Marshal(change)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, gson)
}

func (dc *DeployController) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := dc.orchestrator.Status()
	if err != nil {
		dc.logger.Errorf(providers.TypeDeploy, "Deploy status failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	gson, err := json.Marshal(status)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

// GetQueue lists the changes of the pending batch followed by the queued ones.
func (dc *DeployController) GetQueue(w http.ResponseWriter, r *http.Request) {
	content, err := dc.queue.ReadQueuedAndPendingFiles()
	if err != nil {
		dc.logger.Errorf(providers.TypeDeploy, "Reading deploy queue failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	changes := dc.queue.ParseQueueContent(content)
	if changes == nil {
		changes = []models.DeployChange{}
	}
	gson, err := json.Marshal(changes)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}
