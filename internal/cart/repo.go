package cart

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-shop-payments/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Find returns the user's line for productID; found is false when absent.
func (r *Repo) Find(ctx context.Context, userID, productID string) (it Item, found bool, err error) {
	err = postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT id, user_id, product_id, quantity FROM cart_items
		WHERE user_id=$1 AND product_id=$2`, userID, productID).
		Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	return it, true, nil
}

func (r *Repo) Insert(ctx context.Context, it Item) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, quantity) VALUES ($1, $2, $3, $4)`,
		it.ID, it.UserID, it.ProductID, it.Quantity)
	return err
}

func (r *Repo) SetQuantity(ctx context.Context, id string, qty int) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `UPDATE cart_items SET quantity=$2 WHERE id=$1`, id, qty)
	return err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, user_id, product_id, quantity FROM cart_items
		WHERE user_id=$1 ORDER BY product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}
