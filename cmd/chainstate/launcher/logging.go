package launcher

import (
	"fmt"
	"io"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// SetupLogging builds the logger of the commands from the logging config.
func SetupLogging(cfg LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.Out = out

	if cfg.Verbosity < 0 || cfg.Verbosity > 5 {
		return nil, fmt.Errorf("invalid log verbosity %d (expected 0-5)", cfg.Verbosity)
	}
	// 0=fatal maps to logrus.FatalLevel, 5=trace to logrus.TraceLevel.
	logger.SetLevel(logrus.Level(cfg.Verbosity + 1))

	switch cfg.Format {
	case "text", "":
		logger.Formatter = &logrus.TextFormatter{
			ForceColors:   cfg.Color,
			DisableColors: !cfg.Color,
			FullTimestamp: true,
		}
	case "json":
		logger.Formatter = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("invalid log format %q (expected text or json)", cfg.Format)
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.Timeout = 5 * time.Second
		hook.StacktraceConfiguration.Enable = true
		logger.AddHook(hook)
	}

	return logger, nil
}
