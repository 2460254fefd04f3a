/*
Package monitoring provides Prometheus metrics for terminal sessions.

# Overview

Each Metrics value owns its own registry so that several sessions (or tests)
can create collectors without colliding on global registration.

# Metrics

  - zterm_sessions_active: shells currently running
  - zterm_commands_total{outcome}: commands by outcome (ok, timeout,
    echo_mismatch, review_aborted, error)
  - zterm_command_duration_seconds: send-to-prompt latency
  - zterm_command_output_bytes: size of the cleaned output
  - zterm_review_decisions_total{action}: review gate decisions
  - zterm_cwd_changes_total: working directory changes mirrored into the
    wrapper process

# Usage

	metrics := monitoring.NewMetrics()
	exec := executor.New(sess, executor.WithMetrics(metrics))

	http.Handle("/metrics", metrics.Handler())

All recording methods are safe to call on a nil *Metrics.
*/
package monitoring
