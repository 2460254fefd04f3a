// Package server runs the optional HTTP endpoint that exposes Prometheus
// metrics (/metrics) and a liveness probe (/healthz) while a session runs.
// Routing uses gin in release mode with panic recovery.
package server
