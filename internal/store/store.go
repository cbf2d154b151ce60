package store

import (
	"context"

	"github.com/hyperengineering/platewise/internal/engine"
	"github.com/hyperengineering/platewise/internal/types"
)

// Store defines the interface contract for all diary storage operations.
type Store interface {
	engine.CooldownStore

	CreateEntry(ctx context.Context, entry types.Entry) error
	GetEntry(ctx context.Context, id string) (*types.Entry, error)
	ListEntries(ctx context.Context, filter types.EntryFilter) ([]types.Entry, error)
	ListEntriesByDate(ctx context.Context, date string) ([]types.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	ClearEntries(ctx context.Context) (int64, error)

	CreateFavorite(ctx context.Context, fav types.Favorite) error
	ListFavorites(ctx context.Context) ([]types.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
