package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, p Product) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO products(id, name, description, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
}

// GetForUpdate locks the row until the surrounding transaction ends.
// Outside a transaction it behaves like Get.
func (r *Repo) GetForUpdate(ctx context.Context, id string) (Product, error) {
	if !postgres.InTx(ctx) {
		return r.Get(ctx, id)
	}
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id)
}

func (r *Repo) getOne(ctx context.Context, sql, id string) (Product, error) {
	row := postgres.Conn(ctx, r.DB).QueryRow(ctx, sql, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product not found with id %s", id)
	}
	return p, err
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
}

// Search matches name case-insensitively as a substring.
func (r *Repo) Search(ctx context.Context, query string) ([]Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products
	                    WHERE name ILIKE '%' || $1 || '%' ORDER BY name`, escapeLike(query))
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddStock applies delta and returns the new stock. The guard in the WHERE
// clause keeps stock non-negative even under concurrent writers.
func (r *Repo) AddStock(ctx context.Context, id string, delta int) (int, error) {
	q := postgres.Conn(ctx, r.DB)
	var stock int
	err := q.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock`, id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	p, gerr := r.Get(ctx, id)
	if gerr != nil {
		return 0, gerr
	}
	return 0, apperr.InsufficientStock("insufficient stock for product %s: available %d, requested %d", p.Name, p.Stock, -delta)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
