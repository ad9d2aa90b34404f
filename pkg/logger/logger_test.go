package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestNewAppliesRequestedLevel(t *testing.T) {
	New(Config{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	New(Config{Level: "error"})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestNewDefaultsToInfoForUnknownLevel(t *testing.T) {
	New(Config{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestZerologLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).With().Timestamp().Logger()
	l.Info().Str("component", "test").Msg("hello")

	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestSetGlobalLoggerReplacesPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf)
	SetGlobalLogger(custom)

	log.Logger.Info().Msg("via package logger")
	assert.Contains(t, buf.String(), "via package logger")
}
