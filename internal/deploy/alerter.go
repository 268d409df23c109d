package deploy

import "publishd/internal/providers"

type AlerterInterface interface {
	Alert(message string, err error)
}

// LogAlerter reports exhausted deploys to the deploy log and the alerts counter.
type LogAlerter struct {
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewLogAlerter(logger providers.Logger, metrics providers.MetricsProviderInterface) AlerterInterface {
	return &LogAlerter{logger: logger, metrics: metrics}
}

func (a *LogAlerter) Alert(message string, err error) {
	a.metrics.IncDeployAlerts()
	a.logger.Errorf(providers.TypeDeploy, "ALERT %s: %s", message, err)
}
