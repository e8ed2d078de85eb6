// Package server provides the optional HTTP status API: health, runtime
// statistics, sanitized configuration and Prometheus metrics. The pipeline
// runs fine without it; it exists for observing long-lived transcription
// sessions.
package server
