// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level and format parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The scheduler, its workers and the transports take a context and extract
// the logger from it, so every line carries the component name and ids.
package logger
