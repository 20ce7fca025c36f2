// Package server provides the HTTP server for the Strait gateway.
//
// This package ties together the gateway handlers and middleware and
// provides server lifecycle management including start, graceful shutdown,
// and OS signal handling (SIGTERM, SIGINT).
//
// # Basic Usage
//
// Creating and starting a server:
//
//	handler := handlers.New(handlers.Config{...})
//	srv := server.New(&cfg.Server, &cfg.Telemetry.Metrics, handler, metrics)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is cancelled, a shutdown signal arrives, or
// the listener fails. Shutdown waits for in-flight requests up to the
// configured shutdown timeout.
//
// # Middleware
//
// Every route is wrapped in the same chain, outermost first: panic recovery,
// request id assignment, request logging, CORS. The Prometheus metrics
// endpoint is mounted beside the gateway routes when metrics are enabled.
package server
