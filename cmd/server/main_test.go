package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jersilb1400/icloud-email-service/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	log := newLogger(config.LogConfig{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log = newLogger(config.LogConfig{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	log := newLogger(config.LogConfig{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log = newLogger(config.LogConfig{})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
