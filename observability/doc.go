// Package observability wires OpenTelemetry tracing and metrics for HTTP
// clients built on fetch.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("billing"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("billing"))
//
// The Tracing and Metrics interceptors use the global providers set here
// unless given their own.
package observability
