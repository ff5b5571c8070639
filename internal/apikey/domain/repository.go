package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByKeyID(ctx context.Context, db *gorm.DB, keyID string) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB) ([]APIKey, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, keyID string, usedAt time.Time) error
}
