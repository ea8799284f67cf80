package middleware

import (
	"context"

	"texcalc/message"
)

// HandlerFunc dispatches one request.
type HandlerFunc func(ctx context.Context, req *message.Request) *message.Outcome

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain builds the onion around a dispatcher handler. Wrapping runs from the
// last middleware to the first, so Chain(A, B, C)(h) → A(B(C(h))) and A sees
// each request first and each outcome last.
func Chain(middlewares ...Middleware) Middleware {
	return func(h HandlerFunc) HandlerFunc {
		for i := range middlewares {
			h = middlewares[len(middlewares)-1-i](h)
		}
		return h
	}
}
