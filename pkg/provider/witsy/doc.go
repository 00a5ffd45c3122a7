// Package witsy implements the first-party engine. Its catalog endpoint
// aggregates models of several upstream engines and encodes the upstream
// engine in each model id ("<engine>-<model>"). Completion and streaming
// are declared but not implemented yet and report provider.ErrNotImplemented.
package witsy
