package orders

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Insert writes the order and its item snapshots. Callers that need the
// write to be atomic with other changes run it under postgres.TxRunner.
func (r *Repo) Insert(ctx context.Context, o Order) error {
	q := postgres.Conn(ctx, r.DB)
	_, err := q.Exec(ctx, `
		INSERT INTO orders(id, user_id, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.UserID, o.TotalAmount, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	for i, it := range o.Items {
		_, err = q.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.Price)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	q := postgres.Conn(ctx, r.DB)
	var (
		o Order
		s string
	)
	err := q.QueryRow(ctx, `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.UserID, &o.TotalAmount, &s, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order not found with id %s", orderID)
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(s)
	o.Items, err = r.items(ctx, q, orderID)
	return o, err
}

func (r *Repo) items(ctx context.Context, q postgres.Querier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT product_id, product_name, quantity, price
		FROM order_items WHERE order_id=$1 ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListByUser returns the user's orders newest first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	q := postgres.Conn(ctx, r.DB)
	rows, err := q.Query(ctx, `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	var out []Order
	for rows.Next() {
		var (
			o Order
			s string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &s, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		o.Status = Status(s)
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Items, err = r.items(ctx, q, out[i].ID); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, orderID string, status Status, at time.Time) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, orderID, string(status), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("order not found with id %s", orderID)
	}
	return nil
}
