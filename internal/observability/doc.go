// Package observability builds the zerolog loggers and Prometheus metrics
// shared by the services, the CLI and the dev server.
package observability
