package deploy

import (
	"context"
	"errors"
	"fmt"
	"publishd/internal/models"
	"publishd/internal/providers"
	"publishd/internal/structures"
	"sync"
	"time"
)

var ErrRetriesExhausted = errors.New("deploy retries exhausted")

type State int

const (
	Idle State = iota
	Draining
	Baking
)

func (s State) String() string {
	switch s {
	case Draining:
		return "draining"
	case Baking:
		return "baking"
	default:
		return "idle"
	}
}

type OrchestratorInterface interface {
	DeployIfQueueIsNotEmpty(ctx context.Context) error
	Trigger()
	Wait()
	Stop()
	Status() (models.DeployStatus, error)
}

// Orchestrator runs at most one deploy loop at a time. A call that arrives
// while a loop is active only re-arms it; the active loop checks the queue
// once more before going idle.
type Orchestrator struct {
	queue   DeployQueueInterface
	baker   BakerInterface
	alerter AlerterInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger

	maxFailures      int
	lightningEnabled bool
	bakeTimeout      time.Duration
	now              func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	stopped      bool
	state        State
	rearm        bool
	failures     int
	lastError    string
	lastDeployAt time.Time
}

func NewOrchestrator(
	conf *structures.Config,
	queue DeployQueueInterface,
	baker BakerInterface,
	alerter AlerterInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) OrchestratorInterface {
	ctx, cancel := context.WithCancel(context.Background())
	maxFailures := conf.Deploy.MaxSuccessiveFailures
	if maxFailures <= 0 {
		maxFailures = 2
	}
	return &Orchestrator{
		queue:            queue,
		baker:            baker,
		alerter:          alerter,
		metrics:          metrics,
		logger:           logger,
		maxFailures:      maxFailures,
		lightningEnabled: conf.Deploy.LightningEnabled,
		bakeTimeout:      conf.Deploy.BakeTimeout,
		now:              time.Now,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// DeployIfQueueIsNotEmpty bakes and publishes queued changes until the queue
// and the pending checkpoint are both empty, or until maxFailures bakes in a
// row have failed. In the latter case the pending file is left in place.
func (o *Orchestrator) DeployIfQueueIsNotEmpty(ctx context.Context) error {
	o.mu.Lock()
	if o.state != Idle {
		o.rearm = true
		o.mu.Unlock()
		return nil
	}
	o.state = Draining
	o.failures = 0
	o.mu.Unlock()

	err := o.loop(ctx)
	if err != nil {
		o.mu.Lock()
		o.state = Idle
		o.rearm = false
		o.mu.Unlock()
	}
	o.reportDepth()
	return err
}

func (o *Orchestrator) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		work, err := o.hasWork()
		if err != nil {
			return err
		}
		if !work {
			// Going idle in the same critical section that reads rearm, so a
			// caller arriving now either re-arms this loop or starts its own.
			o.mu.Lock()
			again := o.rearm
			o.rearm = false
			if !again {
				o.state = Idle
			}
			o.mu.Unlock()
			if again {
				continue
			}
			return nil
		}

		if o.failureCount() >= o.maxFailures {
			err := fmt.Errorf("%w after %d attempts: %s", ErrRetriesExhausted, o.maxFailures, o.lastErrorText())
			o.alerter.Alert("Deploy failed, pending batch kept for the next trigger", err)
			return err
		}

		o.iterate(ctx)
	}
}

// iterate runs one drain and bake cycle. Bake failures are recorded, not returned.
func (o *Orchestrator) iterate(ctx context.Context) {
	o.setState(Draining)
	content, err := o.queue.Drain()
	if err != nil {
		o.recordFailure(fmt.Errorf("draining queue: %w", err))
		return
	}
	o.reportDepth()

	changes := o.queue.ParseQueueContent(content)
	if len(changes) == 0 {
		o.logger.Warnf(providers.TypeDeploy, "Drained batch holds no valid changes, discarding it")
		if err := o.queue.DeletePendingFile(); err != nil {
			o.recordFailure(err)
		}
		return
	}

	message := BuildCommitMessage(o.now(), changes)
	lightning := LightningChanges(changes, o.lightningEnabled)
	kind := bakeKind(lightning)

	o.setState(Baking)
	o.logger.Infof(providers.TypeDeploy, "Starting %s bake of %d change(s)", kind, len(changes))
	start := time.Now()
	err = o.bake(ctx, message, lightning)
	o.metrics.ObserveBakeDuration(kind, time.Since(start))
	o.metrics.IncBakes(kind, err == nil)
	if err != nil {
		o.recordFailure(fmt.Errorf("%s bake: %w", kind, err))
		return
	}

	if err := o.queue.DeletePendingFile(); err != nil {
		o.recordFailure(fmt.Errorf("deleting pending file: %w", err))
		return
	}
	o.mu.Lock()
	o.failures = 0
	o.lastError = ""
	o.lastDeployAt = o.now()
	o.mu.Unlock()
	o.logger.Infof(providers.TypeDeploy, "Deployed %d change(s) in %s", len(changes), time.Since(start).Round(time.Millisecond))
}

func (o *Orchestrator) bake(ctx context.Context, message string, lightning []models.DeployChange) error {
	if o.bakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.bakeTimeout)
		defer cancel()
	}
	return o.baker.BakeAndDeploy(ctx, message, lightning)
}

func (o *Orchestrator) hasWork() (bool, error) {
	empty, err := o.queue.IsEmpty()
	if err != nil {
		return false, fmt.Errorf("checking queue file: %w", err)
	}
	if !empty {
		return true, nil
	}
	pending, err := o.queue.HasPending()
	if err != nil {
		return false, fmt.Errorf("checking pending file: %w", err)
	}
	return pending, nil
}

func (o *Orchestrator) recordFailure(err error) {
	o.mu.Lock()
	o.failures++
	o.lastError = err.Error()
	n := o.failures
	o.mu.Unlock()
	o.logger.Errorf(providers.TypeDeploy, "Deploy attempt %d/%d failed: %s", n, o.maxFailures, err)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) failureCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures
}

func (o *Orchestrator) lastErrorText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastError
}

func (o *Orchestrator) reportDepth() {
	if n, err := o.queue.Len(); err == nil {
		o.metrics.SetQueueDepth(n)
	}
}

// Trigger starts a deploy loop in the background, bound to the orchestrator's
// lifetime rather than to the caller's request.
func (o *Orchestrator) Trigger() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		if err := o.DeployIfQueueIsNotEmpty(o.ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Warnf(providers.TypeDeploy, "Deploy loop stopped: %s", err)
		}
	}()
}

func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Stop cancels running bakes and waits for background loops to return.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) Status() (models.DeployStatus, error) {
	o.mu.Lock()
	status := models.DeployStatus{
		State:              o.state.String(),
		SuccessiveFailures: o.failures,
		LastError:          o.lastError,
	}
	if !o.lastDeployAt.IsZero() {
		at := o.lastDeployAt
		status.LastDeployAt = &at
	}
	o.mu.Unlock()

	empty, err := o.queue.IsEmpty()
	if err != nil {
		return status, err
	}
	pending, err := o.queue.HasPending()
	if err != nil {
		return status, err
	}
	status.QueueEmpty = empty
	status.HasPending = pending
	return status, nil
}
