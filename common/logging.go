package common

import (
	"io"
	"os"

	"emperror.dev/errors"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the global logrus logger from the config
func SetupLogging(conf *Config) error {
	level, err := logrus.ParseLevel(conf.Log.Level)
	if err != nil {
		return errors.WrapIf(err, "log.level")
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	var out io.Writer = os.Stdout
	if conf.Log.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   conf.Log.File,
			MaxSize:    conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			Compress:   true,
		})
	}
	logrus.SetOutput(out)

	if conf.Sentry.DSN != "" {
		hook, err := logrus_sentry.NewSentryHook(conf.Sentry.DSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return errors.WrapIf(err, "sentry hook")
		}

		hook.StacktraceConfiguration.Enable = true
		logrus.AddHook(hook)
		logrus.Info("Added Sentry hook")
	}

	return nil
}
