// Package handlers implements the HTTP API for the catalogue service:
// content queries, text search, byte-range media streaming, cache
// maintenance, and health endpoints.
package handlers
