package repository

import (
	"context"
	"time"

	"github.com/openagora/agora/internal/order/domain"
	"github.com/openagora/agora/pkg/db/lifecycle"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, seller_id, buyer_label, total_amount, status, delivered_at, on_time, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.SellerID,
		order.BuyerLabel,
		order.TotalAmount,
		order.Status,
		order.DeliveredAt,
		order.OnTime,
		order.State,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Order, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{}).Scopes(lifecycle.Visible)
	if filter.SellerID != 0 {
		stmt = stmt.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*domain.Order
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) SalesTotals(ctx context.Context, db *gorm.DB, dayStart, monthStart time.Time) (domain.SalesTotals, error) {
	var totals domain.SalesTotals
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN delivered_at >= ? THEN total_amount END), 0) AS today_sales,
			COALESCE(SUM(CASE WHEN delivered_at >= ? THEN total_amount END), 0) AS month_sales,
			COUNT(CASE WHEN delivered_at >= ? THEN 1 END) AS month_order_count
		 FROM orders
		 WHERE status = ? AND state = ?`,
		dayStart,
		monthStart,
		monthStart,
		domain.StatusDelivered,
		lifecycle.StateActive,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) FulfillmentCounts(ctx context.Context, db *gorm.DB) (domain.FulfillmentCounts, error) {
	var counts domain.FulfillmentCounts
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS delivered,
			COUNT(CASE WHEN on_time THEN 1 END) AS on_time
		 FROM orders
		 WHERE status = ? AND state = ?`,
		domain.StatusDelivered,
		lifecycle.StateActive,
	).Scan(&counts).Error
	return counts, err
}
