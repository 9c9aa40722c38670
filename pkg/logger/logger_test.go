package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bakimla-reward/pkg/config"
)

func TestNew_DevelopmentReplacesGlobals(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	cfg := &config.Config{AppEnv: "development", AppName: "bakimla-reward"}
	log := New(ConfigParams{Cfg: cfg})
	require.NotNil(t, log)
	require.Same(t, log, zap.L())
}

func TestFromContext_AttachesSpanIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	defer zap.ReplaceGlobals(prev)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	FromContext(ctx).Info("hello")
	FromContext(context.Background()).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "0102030405060708090a0b0c0d0e0f10", entries[0].ContextMap()["trace_id"])
	require.Equal(t, "0102030405060708", entries[0].ContextMap()["span_id"])
	require.NotContains(t, entries[1].ContextMap(), "trace_id")
}
