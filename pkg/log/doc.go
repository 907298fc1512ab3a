// Package log provides the structured logging abstraction used by puppetlink.
//
// Components log through the Logger interface so that hosts embedding the
// puppet runtime can route messages into their own logging pipeline. A
// zerolog adapter and a no-op logger are provided.
//
// # Usage
//
//	logger := log.NewZerologAdapter("info")
//	logger.Info("puppet started", log.String("role", "editor"), log.Int("pid", pid))
//
// Library code defaults to the no-op logger:
//
//	logger := log.NewNoopLogger()
package log
