package payments

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/orders"
	"github.com/ariefcatur/go-shop-payments/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, order_id, amount, status, external_payment_id, external_order_id, created_at, updated_at`

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, p orders.Payment) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO payments(id, order_id, amount, status, external_payment_id, external_order_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.Amount, string(p.Status), p.ExternalPaymentID, p.ExternalOrderID, p.CreatedAt, p.UpdatedAt)
	return err
}

// FindByOrderID returns the most recent payment of the order.
func (r *Repo) FindByOrderID(ctx context.Context, orderID string) (orders.Payment, bool, error) {
	row := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id=$1 ORDER BY created_at DESC LIMIT 1`, orderID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Payment{}, false, nil
	}
	if err != nil {
		return orders.Payment{}, false, err
	}
	return p, true, nil
}

// FindByExternalOrderID uses the unique index on external_order_id.
func (r *Repo) FindByExternalOrderID(ctx context.Context, externalOrderID string) (orders.Payment, error) {
	row := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE external_order_id=$1`, externalOrderID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Payment{}, apperr.NotFound("payment not found for gateway order %s", externalOrderID)
	}
	return p, err
}

// Resolve moves a PENDING payment to status. It reports false when the
// payment had already left PENDING, in which case nothing is written.
func (r *Repo) Resolve(ctx context.Context, paymentID string, status orders.PaymentStatus, externalPaymentID *string, at time.Time) (bool, error) {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE payments
		SET status=$2, external_payment_id=COALESCE($3, external_payment_id), updated_at=$4
		WHERE id=$1 AND status='PENDING'`,
		paymentID, string(status), externalPaymentID, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func scanPayment(row pgx.Row) (orders.Payment, error) {
	var (
		p orders.Payment
		s string
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &s, &p.ExternalPaymentID, &p.ExternalOrderID, &p.CreatedAt, &p.UpdatedAt)
	p.Status = orders.PaymentStatus(s)
	return p, err
}
