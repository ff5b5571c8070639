package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/pkg/db/lifecycle"
)

// Product is a regulated good. Slug is the stable handle used in exports
// and URLs; ceilings and listings reference the ID.
type Product struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Slug      string          `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Category  string          `gorm:"type:text;not null;index" json:"category"`
	Unit      string          `gorm:"type:text;not null" json:"unit"`
	State     lifecycle.State `gorm:"type:text;not null;default:'ACTIVE'" json:"-"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
