package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/granada-os/personalization/internal/platform/logging"
)

type recordedLog struct {
	severity otellog.Severity
	body     string
	attrs    map[string]otellog.Value
}

type recordingOTelLogger struct {
	embedded.Logger

	mu      sync.Mutex
	records []recordedLog
}

func (l *recordingOTelLogger) Emit(_ context.Context, record otellog.Record) {
	attrs := make(map[string]otellog.Value)
	record.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, recordedLog{
		severity: record.Severity(),
		body:     record.Body().AsString(),
		attrs:    attrs,
	})
}

func (l *recordingOTelLogger) Enabled(context.Context, otellog.EnabledParameters) bool {
	return true
}

func (l *recordingOTelLogger) snapshot() []recordedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedLog(nil), l.records...)
}

func TestUptraceLogCore_MirrorsEntriesAtOrAboveLevel(t *testing.T) {
	sink := &recordingOTelLogger{}
	logger := logging.NewNop().Tee(newOTelLogCore(sink, zapcore.InfoLevel)).With("service", "granada-personalization")

	logger.Debug("http request", "path", "/healthz")
	logger.Warn("geoip provider failed", "provider", "ipapi.co", "attempt", 2, "elapsed", 150*time.Millisecond, "error", errors.New("timeout"))

	records := sink.snapshot()
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, otellog.SeverityWarn, got.severity)
	assert.Equal(t, "geoip provider failed", got.body)
	assert.Equal(t, "granada-personalization", got.attrs["service"].AsString())
	assert.Equal(t, "ipapi.co", got.attrs["provider"].AsString())
	assert.EqualValues(t, 2, got.attrs["attempt"].AsInt64())
	assert.Equal(t, "150ms", got.attrs["elapsed"].AsString())
	assert.Equal(t, "timeout", got.attrs["error"].AsString())
}

func TestToOTelSeverity(t *testing.T) {
	tests := []struct {
		level zapcore.Level
		want  otellog.Severity
	}{
		{level: zapcore.DebugLevel, want: otellog.SeverityDebug},
		{level: zapcore.InfoLevel, want: otellog.SeverityInfo},
		{level: zapcore.WarnLevel, want: otellog.SeverityWarn},
		{level: zapcore.ErrorLevel, want: otellog.SeverityError},
		{level: zapcore.PanicLevel, want: otellog.SeverityFatal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, toOTelSeverity(tc.level), tc.level.String())
	}
}

func TestToOTelLogValue_Nested(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	zap.Strings("goals", []string{"Research project funding", "Capacity building"}).AddTo(enc)

	got := toOTelLogValue(enc.Fields["goals"], 0)
	require.Equal(t, otellog.KindSlice, got.Kind())
	items := got.AsSlice()
	require.Len(t, items, 2)
	assert.Equal(t, "Capacity building", items[1].AsString())

	deep := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}
	b := toOTelLogValue(deep, 0).AsMap()[0].Value.AsMap()[0].Value
	require.Equal(t, otellog.KindMap, b.Kind())
	c := b.AsMap()[0].Value
	assert.Equal(t, otellog.KindString, c.Kind(), "values past the depth limit are stringified")
	assert.Equal(t, "1", c.AsString())
}
