package logging

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/bryanwahyu/codeaudit/internal/config"
)

// NewLogger builds a name-scoped logger. The config level wins; the
// CODEAUDIT_LOG_LEVEL environment variable is the fallback.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	var logLevel hclog.Level

	if cfg != nil && cfg.Logger.Level != "" {
		logLevel = getLogLevel(strings.ToUpper(cfg.Logger.Level))
	} else {
		logLevel = getLogLevel(strings.ToUpper(os.Getenv("CODEAUDIT_LOG_LEVEL")))
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      os.Stderr,
		Level:       logLevel,
	})
}

func getLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
