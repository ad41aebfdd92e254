// Package middleware provides HTTP middleware for the gridbalancer API
package middleware

import (
	"net/http"

	"gridbalancer/internal/types"
)

// Chain manages middleware execution order
type Chain struct {
	middlewares []types.Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...types.Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Use adds middleware to the chain
func (c *Chain) Use(middlewares ...types.Middleware) {
	c.middlewares = append(c.middlewares, middlewares...)
}

// Then creates the final handler by chaining all middleware
func (c *Chain) Then(handler http.Handler) http.Handler {
	// Apply middleware in reverse order so they execute in the order added
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}
