package controllers

import (
	"fmt"
	"net/http"
	"publishd/internal/deploy"
	"publishd/internal/services"
	"time"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	archival     services.ArchivalServiceInterface
	orchestrator deploy.OrchestratorInterface
	startTime    time.Time
}

type healthResponse struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	DeployState     string  `json:"deploy_state"`
	DeployPending   bool    `json:"deploy_pending"`
	ArchivalRunning bool    `json:"archival_running"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:          "ok",
		Uptime:          formatDuration(uptime),
		UptimeSeconds:   uptime.Seconds(),
		ArchivalRunning: hc.archival.IsRunning(),
	}
	status, err := hc.orchestrator.Status()
	if err != nil {
		resp.Status = "degraded"
	}
	resp.DeployState = status.State
	resp.DeployPending = status.HasPending

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(archival services.ArchivalServiceInterface, orchestrator deploy.OrchestratorInterface) *HealthController {
	return &HealthController{
		archival:     archival,
		orchestrator: orchestrator,
		startTime:    time.Now(),
	}
}
