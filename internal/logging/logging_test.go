package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	eventbus "github.com/hanpama/persongraph/internal/eventbus"
	events "github.com/hanpama/persongraph/internal/events"
	reqid "github.com/hanpama/persongraph/internal/reqid"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "Production", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.True(t, l.Core().Enabled(zapcore.DebugLevel), mode)
	}
}

func TestSubscribe_Levels(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	core, logs := observer.New(zap.DebugLevel)
	defer Subscribe(zap.New(core))()

	ctx, _ := reqid.WithID(context.Background(), "rid-1")
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query"})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "mutation", Errors: []error{errors.New("Name must be unique")}})
	eventbus.Publish(ctx, events.StoreCallFinish{Method: "GET", Status: 200})
	eventbus.Publish(ctx, events.StoreCallFinish{Method: "POST", Status: 409, Err: errors.New("conflict")})
	eventbus.Publish(ctx, events.StoreCallFinish{Method: "GET", Err: errors.New("connection refused")})

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	levels := make([]zapcore.Level, len(entries))
	for i, e := range entries {
		levels[i] = e.Level
		require.Equal(t, "rid-1", e.ContextMap()["request_id"])
	}
	require.Equal(t, []zapcore.Level{zap.DebugLevel, zap.WarnLevel, zap.DebugLevel, zap.WarnLevel, zap.ErrorLevel}, levels)
	require.Equal(t, []any{"Name must be unique"}, logs.FilterMessage("graphql operation failed").All()[0].ContextMap()["errors"])
}
