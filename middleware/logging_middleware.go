package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"texcalc/message"
)

// LoggingMiddleware logs each request with its outcome and duration.
func LoggingMiddleware(log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Outcome {
			start := time.Now()
			out := next(ctx, req)
			fields := []zap.Field{
				zap.String("request", req.Text()),
				zap.Stringer("status", out.Status),
				zap.String("response", out.Text),
				zap.Duration("duration", time.Since(start)),
			}
			if out.Failed() {
				log.Warn("request failed", fields...)
			} else {
				log.Info("request handled", fields...)
			}
			return out
		}
	}
}
