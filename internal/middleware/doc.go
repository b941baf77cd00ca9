// Package middleware provides HTTP middleware for the catalogue service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics keyed by route template
//   - Response compression (gzip) for API payloads
package middleware
