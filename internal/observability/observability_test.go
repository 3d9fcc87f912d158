package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("device event", "serial", "ST-00000512")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "device event", line["msg"])
	assert.Equal(t, "ST-00000512", line["serial"])
	assert.Equal(t, "tempest-monitor", line["service"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("decoded", "type", "obs_st")

	assert.Contains(t, buf.String(), "msg=decoded")
	assert.Contains(t, buf.String(), "type=obs_st")
}

func TestMetricsRegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.DecodeErrors))

	m.DecodeErrors.WithLabelValues("unknown_type").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("unknown_type")), 0)
	assert.Len(t, m.collectors(), 12)
}
