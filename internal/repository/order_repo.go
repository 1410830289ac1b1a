package repository

import (
	"context"

	"github.com/Eric920418/shoe-sub003/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

const orderColumns = `
	orderid, ordernumber, customerid, customeremail, status, paymentstatus,
	total, shippingstatus, createdat
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.OrderID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.CustomerEmail,
		&o.Status,
		&o.PaymentStatus,
		&o.Total,
		&o.ShippingStatus,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderByID returns the order row for the given orderid.
func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID int64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE orderid=$1`
	return scanOrder(r.DB.QueryRow(ctx, q, orderID))
}

// GetOrderByNumber returns the order row for the human-facing order number.
func (r *OrderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE ordernumber=$1`
	return scanOrder(r.DB.QueryRow(ctx, q, orderNumber))
}
