package repository

import (
	"context"

	"beacon-attendance/backend/internal/organization/domain"
)

// Repository defines persistence for organizations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Org, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Org, error)
	Create(ctx context.Context, o *domain.Org) error
}
