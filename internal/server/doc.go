// Package server exposes the HTTP monitoring API: health, session state,
// configuration, statistics, and Prometheus metrics.
package server
