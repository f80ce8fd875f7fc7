// Package logging provides concrete implementations of the fsload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Human-readable lines on stderr with thread-safe output
//   - ZapLogger: Structured JSON lines for log pipelines, backed by zap
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
