package scheduler

import (
	"context"
	"errors"
	"publishd/internal/deploy"
	"publishd/internal/providers"
	"publishd/internal/scheduler/interfaces"
	"publishd/internal/services"
	"publishd/internal/structures"
	"sync"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config       *structures.Config
	logger       providers.Logger
	archival     services.ArchivalServiceInterface
	queue        deploy.DeployQueueInterface
	orchestrator deploy.OrchestratorInterface
	cron         *gron.Cron
	opsMu        sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	archiveInterval := s.config.Archive.Interval
	pollInterval := s.config.Deploy.PollInterval

	if archiveInterval > 0 {
		s.cron.AddFunc(gron.Every(archiveInterval), func() {
			if err := s.RunArchival(); err != nil && !errors.Is(err, services.ErrArchivalRunning) {
				s.logger.Errorf(providers.TypeArchive, "Scheduled archival failed: %s", err)
			}
		})
	}

	if pollInterval > 0 {
		s.cron.AddFunc(gron.Every(pollInterval), func() {
			s.orchestrator.Trigger()
		})
	}

	s.cron.Start()
}

// Stop halts the cron and waits for a running archival job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
}

// Restore resumes a deploy interrupted by a restart: a non-empty queue or a
// leftover pending batch starts the orchestrator.
func (s *Scheduler) Restore() error {
	empty, err := s.queue.IsEmpty()
	if err != nil {
		return err
	}
	pending, err := s.queue.HasPending()
	if err != nil {
		return err
	}
	if empty && !pending {
		return nil
	}
	if pending {
		s.logger.Warnf(providers.TypeDeploy, "Found unconfirmed deploy batch, redeploying")
	}
	s.orchestrator.Trigger()
	return nil
}

func (s *Scheduler) RunArchival() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeArchive, "Archiving changed entities...")
	_, err := s.archival.Run(context.Background())
	return err
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	archival services.ArchivalServiceInterface,
	queue deploy.DeployQueueInterface,
	orchestrator deploy.OrchestratorInterface,
) interfaces.SchedulerInterface {
	return &Scheduler{
		config:       config,
		logger:       logger,
		archival:     archival,
		queue:        queue,
		orchestrator: orchestrator,
	}
}
