// Package transport defines the contract between the HTTP surface and the
// engine registry, the event writer used for streamed completions, and the
// HTTP middleware chain shared by every route.
//
// # Interfaces
//
//   - EngineRegistry is the registry surface the HTTP adapter serves:
//     listings, readiness, catalogs, refresh and ignition.
//   - EventWriter abstracts streamed (SSE) and buffered (JSON) completion
//     output.
//
// # Middleware
//
// Middleware wraps http.Handler. Built-in middleware provides panic
// recovery, request id assignment (X-Request-ID) and access logging via
// log/slog. InFlight tracks running completion streams so that they can be
// cancelled by id.
package transport
