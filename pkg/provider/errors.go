package provider

import "errors"

// ErrNotImplemented is returned by engines that declare an operation but
// do not implement it yet. Callers must not treat it as an empty result.
var ErrNotImplemented = errors.New("provider: operation not implemented")
