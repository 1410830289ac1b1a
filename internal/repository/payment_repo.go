package repository

import (
	"context"
	"errors"

	"github.com/Eric920418/shoe-sub003/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) CreatePending(ctx context.Context, p *model.Payment) error {
	q := `
		INSERT INTO payments
			(paymentid, orderid, merchantorderno, amount, paymenttype, paymentstatus, createdat)
		VALUES
			($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.DB.Exec(
		ctx, q,
		p.PaymentID, p.OrderID, p.MerchantOrderNo, p.Amount, p.PaymentType, p.Status,
	)
	return err
}

const paymentColumns = `
	paymentid, orderid, merchantorderno, tradeno, amount, paymenttype,
	paymentstatus, bankcode, paycode, expireat, errormessage, rawpayload,
	createdat, paidat
`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.PaymentID,
		&p.OrderID,
		&p.MerchantOrderNo,
		&p.TradeNo,
		&p.Amount,
		&p.PaymentType,
		&p.Status,
		&p.BankCode,
		&p.PayCode,
		&p.ExpireAt,
		&p.ErrorMessage,
		&p.RawPayload,
		&p.CreatedAt,
		&p.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByMerchantOrderNo(ctx context.Context, merchantOrderNo string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE merchantorderno=$1`
	return scanPayment(r.DB.QueryRow(ctx, q, merchantOrderNo))
}

func (r *PaymentRepository) GetLatestByOrderID(ctx context.Context, orderID int64) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE orderid=$1 ORDER BY createdat DESC LIMIT 1`
	return scanPayment(r.DB.QueryRow(ctx, q, orderID))
}

// CountByOrderID returns how many payment attempts exist for the order; the
// next merchantOrderNo suffix is count+1.
func (r *PaymentRepository) CountByOrderID(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE orderid=$1`, orderID).Scan(&n)
	return n, err
}

// Finalize applies one state transition to the payment and mirrors it onto
// the owning order in the same transaction. The UPDATE is conditional on the
// legal predecessor statuses, so of two concurrent callbacks for the same
// merchantorderno exactly one sees a row change; the loser gets (false, nil)
// and takes the idempotent no-op path.
func (r *PaymentRepository) Finalize(ctx context.Context, upd model.PaymentUpdate) (bool, error) {
	sources := model.TransitionSources(upd.Next)
	if len(sources) == 0 {
		return false, errors.New("no legal transition into " + string(upd.Next))
	}
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `
		UPDATE payments
		SET paymentstatus=$2,
		    tradeno=COALESCE($3, tradeno),
		    bankcode=COALESCE($4, bankcode),
		    paycode=COALESCE($5, paycode),
		    expireat=COALESCE($6, expireat),
		    errormessage=COALESCE($7, errormessage),
		    rawpayload=COALESCE($8, rawpayload),
		    paidat=COALESCE($9, paidat)
		WHERE merchantorderno=$1 AND paymentstatus = ANY($10)
		RETURNING orderid
	`,
		upd.MerchantOrderNo, upd.Next, upd.TradeNo, upd.BankCode, upd.PayCode,
		upd.ExpireAt, upd.ErrorMessage, upd.RawPayload, upd.PaidAt, from,
	).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// someone else already moved the row
			return false, nil
		}
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET paymentstatus=$2 WHERE orderid=$1
	`, orderID, upd.Next); err != nil {
		return false, err
	}

	if upd.Next == model.PaymentPaid {
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status=$2 WHERE orderid=$1 AND status=$3
		`, orderID, model.OrderProcessing, model.OrderPending); err != nil {
			return false, err
		}
	}

	return true, tx.Commit(ctx)
}
