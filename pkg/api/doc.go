// Package api defines the shared data types of the engine hub: catalog kinds,
// models, the eight-kind model catalog and the typed metadata bag attached to
// each model, plus the structured error returned by providers and the HTTP
// transport.
//
// Core types:
//   - [Model]: a single model exposed by an engine
//   - [ModelsList]: the full catalog of an engine, one sequence per [Kind]
//   - [Meta]: provider-specific payload preserved as a typed key-value bag
//   - [APIError]: structured error with type, code, param, and message
//
// The package performs no I/O and only depends on the standard library.
package api
