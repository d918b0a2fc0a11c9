// Package integration provides end-to-end tests for the catalog sync service.
// They start the full application against a local product feed and drive it
// through the HTTP API.
package integration
