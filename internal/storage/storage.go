// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"autoads_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	UpsertListing(ctx context.Context, l *model.Listing) error
	ListingExists(ctx context.Context, link string) (bool, error)
	LastLinks(ctx context.Context, n int) ([]string, error)
	CountListings(ctx context.Context) (int, error)
	EvictListings(ctx context.Context, keep int) error

	CreateUser(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	ListActiveUsers(ctx context.Context) ([]model.User, error)
	SetActive(ctx context.Context, userID int64, active bool) error
	SetStep(ctx context.Context, userID int64, step model.Step) error
	DeleteUser(ctx context.Context, userID int64) error

	AddFilterValue(ctx context.Context, userID int64, dim model.Dimension, value string) error
	RemoveFilterValue(ctx context.Context, userID int64, dim model.Dimension, value string) error
	HasFilterValue(ctx context.Context, userID int64, dim model.Dimension, value string) (bool, error)
	GetFilters(ctx context.Context, userID int64) (model.FilterSet, error)
	ResetFilters(ctx context.Context, userID int64) error

	Close() error
}
