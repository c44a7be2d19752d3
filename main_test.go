package main

import (
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
		log.SetOutput(os.Stderr)
	})

	configureLogging(Config{LogLevel: "debug", LogFormat: "json"})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	// Unknown levels fall back to info rather than failing startup.
	configureLogging(Config{LogLevel: "nonsense"})
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)

	// The debug flag wins over the configured level.
	configureLogging(Config{LogLevel: "warn", Debug: true})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
