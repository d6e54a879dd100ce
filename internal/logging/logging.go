// Package logging builds the process logger and logs bus events through it.
package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/persongraph/internal/eventbus"
	events "github.com/hanpama/persongraph/internal/events"
	reqid "github.com/hanpama/persongraph/internal/reqid"
)

// New returns a JSON production logger for "prod" or "production" and a
// console development logger for anything else.
func New(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return cfg.Build()
}

// Subscribe logs finished operations and store calls on the global bus.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			fields := []zap.Field{
				zap.String("operation_type", e.OperationType),
				zap.String("operation_name", e.OperationName),
				zap.Duration("duration", e.Duration),
			}
			fields = appendRequestID(ctx, fields)
			if len(e.Errors) == 0 {
				logger.Debug("graphql operation", fields...)
				return
			}
			msgs := make([]string, len(e.Errors))
			for i, err := range e.Errors {
				msgs[i] = err.Error()
			}
			logger.Warn("graphql operation failed", append(fields, zap.Strings("errors", msgs))...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.StoreCallFinish) {
			fields := appendRequestID(ctx, []zap.Field{
				zap.String("method", e.Method),
				zap.String("url", e.URL),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			})
			switch {
			case e.Err == nil:
				logger.Debug("store call", fields...)
			case e.Status == 0 || e.Status >= 500:
				logger.Error("store call failed", append(fields, zap.Error(e.Err))...)
			default:
				logger.Warn("store call rejected", append(fields, zap.Error(e.Err))...)
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func appendRequestID(ctx context.Context, fields []zap.Field) []zap.Field {
	if id, ok := reqid.FromContext(ctx); ok {
		return append(fields, zap.String("request_id", id))
	}
	return fields
}
