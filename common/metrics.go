package common

import (
	"emperror.dev/errors"
	"github.com/DataDog/datadog-go/statsd"
	"github.com/sirupsen/logrus"
)

// Statsd receives the bot metrics, it's a no-op client unless metrics.statsd_addr is set
var Statsd statsd.ClientInterface = &statsd.NoOpClient{}

// SetupMetrics connects to the dogstatsd agent from the config, if one is configured
func SetupMetrics(conf *Config) error {
	if conf.Metrics.StatsdAddr == "" {
		return nil
	}

	client, err := statsd.New(conf.Metrics.StatsdAddr, statsd.WithNamespace("townhall."), statsd.WithTags([]string{"service:townhallbot"}))
	if err != nil {
		return errors.WrapIf(err, "statsd")
	}

	Statsd = client
	logrus.WithField("addr", conf.Metrics.StatsdAddr).Info("Sending metrics to statsd")
	return nil
}
