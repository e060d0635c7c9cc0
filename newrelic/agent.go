package newrelic

import (
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"careplatform/outbox-relay/log"
)

const (
	shutdownTimeout   = time.Second * 10
	defaultAppName    = "outbox-relay"
	envKeyNewRelicEnv = "NEW_RELIC_ENV"
	envKeyLogLevel    = "NEW_RELIC_LOG_LEVEL"
	envKeyLicense     = "NEW_RELIC_LICENSE_KEY"
	envKeyServiceName = "SERVICE_NAME"
)

// StartAgent starts the New Relic agent configured from NEW_RELIC_* variables.
// Without a license key the agent is created disabled, so transactions and
// segments become no-ops.
func StartAgent() (*newrelic.Application, func()) {
	app, err := newrelic.NewApplication(agentOptions(os.Getenv)...)
	if err != nil {
		log.Logger.WithError(err).Fatal("error starting New Relic agent")
	}
	return app, func() {
		log.Logger.Info("shutting down newrelic agent")
		app.Shutdown(shutdownTimeout)
	}
}

func agentOptions(getenv func(string) string) []newrelic.ConfigOption {
	return []newrelic.ConfigOption{
		newrelic.ConfigAppName(appName(getenv(envKeyServiceName))),
		newrelic.ConfigFromEnvironment(),
		agentLoggingConfig(getenv(envKeyLogLevel)),
		func(cfg *newrelic.Config) {
			cfg.Labels = map[string]string{
				"env":     getenv(envKeyNewRelicEnv),
				"service": appName(getenv(envKeyServiceName)),
			}
			if getenv(envKeyLicense) == "" {
				cfg.Enabled = false
			}
		},
	}
}

func appName(service string) string {
	if service == "" {
		return defaultAppName
	}
	return service + "-" + defaultAppName
}

func agentLoggingConfig(level string) newrelic.ConfigOption {
	if level == "debug" {
		return newrelic.ConfigDebugLogger(log.Logger.Writer())
	}
	return newrelic.ConfigInfoLogger(log.Logger.Writer())
}
