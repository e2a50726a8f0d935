// Package errs defines the error shapes the API sends to clients.
//
// Every failed request ends up as an HTTPError serialized to JSON, so
// clients can rely on one structure:
//
//	{"code":"NOT_FOUND","message":"Employee with ID 4 not found.","status":404,...}
//
// Field level validation problems travel in Errors; Action carries an
// optional hint for the client (for example a redirect after a 401).
package errs
