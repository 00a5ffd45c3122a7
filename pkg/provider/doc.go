// Package provider defines the capability contract every engine implements:
// model discovery, non-streaming completion and streaming completion. The
// registry hands out Engine values; callers never depend on a concrete
// backend type.
package provider
