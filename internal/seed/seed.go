package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	"github.com/openagora/agora/internal/auth/password"
	"github.com/openagora/agora/internal/authorization"
	productdomain "github.com/openagora/agora/internal/product/domain"
	sellerdomain "github.com/openagora/agora/internal/seller/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@agora.local"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "Agora Admin"
)

// EnsureDefaultAdmin seeds the bootstrap super-admin so a fresh install is
// reachable. The account is flagged is_default; the password is expected to
// be rotated on first login.
func EnsureDefaultAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.AdminUser
		err := tx.WithContext(ctx).
			Where("email = ?", strings.ToLower(defaultAdminEmail)).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(defaultAdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = authdomain.AdminUser{
			ID:           node.Generate(),
			Email:        strings.ToLower(defaultAdminEmail),
			DisplayName:  defaultAdminDisplay,
			Role:         string(authorization.RoleSuperAdmin),
			Status:       authdomain.UserStatusActive,
			PasswordHash: &hashed,
			IsDefault:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureDemoData seeds a few sellers and regulated products for local
// development. Guarded by SEED_DEMO_DATA and a no-op when products exist.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&productdomain.Product{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		products := []productdomain.Product{
			{Name: "Paracetamol 500mg", Category: "medicine", Unit: "box"},
			{Name: "Surgical Mask 50pc", Category: "medical_supply", Unit: "pack"},
			{Name: "Premium Rice", Category: "staple_food", Unit: "kg"},
		}
		for i := range products {
			products[i].ID = node.Generate()
			products[i].Slug = slug.Make(products[i].Name)
			products[i].CreatedAt = now
			products[i].UpdatedAt = now
		}
		if err := tx.WithContext(ctx).Create(&products).Error; err != nil {
			return err
		}

		sellers := []sellerdomain.Seller{
			{BusinessName: "Mercado Central", OwnerName: "Dana Reyes", Email: "dana@mercadocentral.example", Status: sellerdomain.StatusActive, ApprovedAt: &now},
			{BusinessName: "Farmacia Norte", OwnerName: "Ira Santos", Email: "ira@farmacianorte.example", Status: sellerdomain.StatusPending},
		}
		for i := range sellers {
			sellers[i].ID = node.Generate()
			sellers[i].CreatedAt = now
			sellers[i].UpdatedAt = now
		}
		return tx.WithContext(ctx).Create(&sellers).Error
	})
}
