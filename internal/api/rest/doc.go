// Package rest exposes the scheduler over a JSON REST API.
//
// Routes are served by chi; the /v1 operations are declared with huma, which
// also publishes the OpenAPI document at /openapi. /metrics serves the
// prometheus registry and /healthz reports liveness.
package rest
