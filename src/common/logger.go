package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// SetupLogger builds the console logger at the configured level
func SetupLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		TextOutput:       true,
		DisableTimestamp: false,
	})

	level := config.Logging.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}
