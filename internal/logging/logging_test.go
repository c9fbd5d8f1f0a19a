package logging_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/autotune/internal/errs"
	"github.com/signalnine/autotune/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := logging.ParseLevel("loud")
	assert.True(t, errs.Is(err, errs.ErrInvalidParameter))
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "warn", false)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponentAndErr(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "debug", false)
	require.NoError(t, err)

	l := logging.Component(logger, "runner")
	logging.Err(l.Error(), errs.NewInvalidParameter("seed", "not a number", "x")).Msg("bad")

	out := buf.String()
	assert.Contains(t, out, `"component":"runner"`)
	assert.Contains(t, out, `"type":"InvalidParameter"`)
}
