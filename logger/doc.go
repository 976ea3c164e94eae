// Package logger provides structured logging for httpware using zerolog.
//
// Fetchers, interceptors and the probe command all log through *Logger so
// a single Config decides level, format and destination.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("fetch")
//	log.Info("interceptor registered", logger.Fields(logger.FieldHandle, 3))
package logger
