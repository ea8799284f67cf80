package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"texcalc/message"
)

// RateLimited is the failure text returned for a rejected request.
const RateLimited = "rate limit exceeded"

// RateLimitMiddleware rejects requests beyond r per second, allowing bursts of
// up to burst requests. Rejected requests are not dispatched.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Outcome {
			if !limiter.Allow() {
				return message.Failed(RateLimited)
			}
			return next(ctx, req)
		}
	}
}
