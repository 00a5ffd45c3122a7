package storage

import (
	"context"
	"time"

	"github.com/rhuss/enginehub/pkg/api"
)

// Catalog is a stored engine catalog.
type Catalog struct {
	Engine    string
	Models    *api.ModelsList
	UpdatedAt time.Time
}

// CatalogStore persists engine catalogs.
//
// Implementations must be safe for concurrent use. Concurrent saves for
// the same engine resolve as last write wins.
type CatalogStore interface {
	// SaveModels replaces the stored catalog of engine. A nil catalog
	// returns ErrNoCatalog and leaves stored data untouched.
	SaveModels(ctx context.Context, engine string, models *api.ModelsList) error

	// GetModels returns the stored catalog of engine, or ErrNotFound.
	GetModels(ctx context.Context, engine string) (*Catalog, error)

	// ListEngines returns the names of all engines with a stored catalog,
	// sorted ascending.
	ListEngines(ctx context.Context) ([]string, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
