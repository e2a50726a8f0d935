// Package middleware holds the global and route-level echo middleware:
// request ids, request-scoped loggers, bearer token checks, rate limiting,
// New Relic tracing, and the error handler every failure ends up in.
package middleware
