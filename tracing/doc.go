// Package tracing integrates OpenTelemetry with the advice engine. It keeps the
// provider setup, span helpers and the environment carrier used to continue a
// trace inside a child process.
package tracing
