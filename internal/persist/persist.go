// Package persist stores chunk overrides and entity snapshots as versioned,
// tagged documents. Documents are validated against embedded JSON schemas
// when read and zstd-compressed at rest.
package persist

import (
	"context"
	"errors"

	"terminus-core/internal/gamemap"
	"terminus-core/internal/worldgen"
)

// ErrPersistence wraps every store failure. Callers treat it as recoverable.
var ErrPersistence = errors.New("persist: store failure")

// ErrNoSnapshot is returned by LoadEntitySnapshot when nothing was saved yet.
var ErrNoSnapshot = errors.New("persist: no entity snapshot")

// Override is one tile changed after generation, in chunk-local coordinates.
type Override struct {
	X    int            `json:"x"`
	Y    int            `json:"y"`
	Tile gamemap.TileID `json:"tile"`
}

// Store is the persistence collaborator.
type Store interface {
	// LoadOverrides returns the overrides for a chunk, or none.
	LoadOverrides(ctx context.Context, key worldgen.Coord) ([]Override, error)
	SaveOverrides(ctx context.Context, key worldgen.Coord, overrides []Override) error
	LoadEntitySnapshot(ctx context.Context) (*EntitySnapshot, error)
	SaveEntitySnapshot(ctx context.Context, snap *EntitySnapshot) error
	Close() error
}
