// Package handler is the HTTP layer. Handlers bind and validate input
// through the shared pipeline in base.go, call a service and write JSON.
package handler
