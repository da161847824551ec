package repository

import (
	"context"
	"database/sql"
	"time"
)

// RevenueReport aggregates completed orders over a period.
type RevenueReport struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	OrderCount   uint64    `json:"orderCount"`
	RevenueCents uint64    `json:"revenueCents"`
}

// ProductSales is one row of the top-products report.
type ProductSales struct {
	ProductID uint64 `json:"productId"`
	Name      string `json:"name"`
	Quantity  uint64 `json:"quantity"`
}

type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// Revenue sums completed orders between from and to.
func (r *ReportRepo) Revenue(ctx context.Context, from, to time.Time) (RevenueReport, error) {
	rep := RevenueReport{From: from, To: to}
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_cents),0) FROM orders WHERE status='COMPLETED' AND created_at >= ? AND created_at < ?",
		from, to).Scan(&rep.OrderCount, &rep.RevenueCents)
	return rep, err
}

// TopProducts returns the best-selling products by quantity.
func (r *ReportRepo) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.name, SUM(oi.quantity) AS qty
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.status='COMPLETED'
		 GROUP BY p.id, p.name
		 ORDER BY qty DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Quantity); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}
