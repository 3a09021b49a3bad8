package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered() (*StandardLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	logger := New()
	logger.SetOutput(buf)
	return logger, buf
}

func TestLevelFormat(t *testing.T) {
	logger, buf := newBuffered()

	logger.Info("rendered %d fixtures", 3)
	logger.Error("boom")

	assert.Equal(t, "[INFO] rendered 3 fixtures\n[ERROR] boom\n", buf.String())
}

func TestWarnUsesWarningLevel(t *testing.T) {
	logger, buf := newBuffered()

	logger.Warn("careful")

	assert.Equal(t, "[WARNING] careful\n", buf.String())
}

func TestFieldsAreSorted(t *testing.T) {
	logger, buf := newBuffered()

	logger.WithFields(map[string]any{"fixture": "basic", "attempt": 1}).Info("compare")

	assert.Equal(t, "[INFO] compare attempt=1 fixture=basic\n", buf.String())
}

func TestWithFieldDoesNotLeak(t *testing.T) {
	logger, buf := newBuffered()

	logger.WithField("fixture", "a").Info("first")
	logger.Info("second")

	assert.Equal(t, "[INFO] first fixture=a\n[INFO] second\n", buf.String())
}

func TestWithError(t *testing.T) {
	logger, buf := newBuffered()

	logger.WithError(errors.New("some-error")).Error("failed")

	assert.Contains(t, buf.String(), "error=some-error")
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBuffered()

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.SetLevel("DEBUG"))
	logger.Debug("shown")
	assert.Equal(t, "[DEBUG] shown\n", buf.String())
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBuffered()
	logger.SetOutputFormat("json")

	logger.Error("error message")

	var js map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &js))
	assert.Equal(t, "error message", js["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"", logrus.InfoLevel},
		{"Info", logrus.InfoLevel},
		{"warning", logrus.WarnLevel},
		{" error ", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, level, tt.input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nobody hears this")
	assert.Equal(t, "info", logger.GetLevel())
}
