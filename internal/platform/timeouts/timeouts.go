// Package timeouts defines shared timeout constants used across the worker
// runtime. Centralizing these values prevents drift between boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// UpstreamFetch caps the time allowed for a single proxied upstream fetch.
const UpstreamFetch = 10 * time.Second

// ConnectivityProbe caps the wait time for one upstream reachability probe.
const ConnectivityProbe = 3 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
