// Package mcpserver exposes the engine registry as MCP tools over the
// streamable HTTP transport.
//
// Tools:
//
//   - list_engines: engine statuses and the engine listings
//   - list_models: the catalog of one engine, optionally filtered by kind
//   - refresh_models: reload and persist the catalog of one engine
//   - engine_status: the status of one configured engine
//
// Every tool answers with a single JSON text block. Lookup failures are
// reported as tool errors, not protocol errors.
package mcpserver
