// Package storage defines the catalog persistence contract shared by the
// storage adapters (memory, postgres) together with its sentinel errors.
//
// A catalog store keeps the last successfully loaded model catalog of each
// engine. Saving replaces the whole catalog; there is no incremental merge.
package storage
