// Package registry maps engine names to configuration, reports which
// engines are configured and ready, ignites live engine handles and loads
// model catalogs into the configuration.
//
// The first-party witsy engine is the universal fallback: IgniteEngine
// never fails and returns a witsy adapter whenever no delegate claims the
// requested name.
package registry
