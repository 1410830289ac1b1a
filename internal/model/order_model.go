package model

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderShipped    OrderStatus = "SHIPPED"
)

// Order represents an entry in the orders table. Order management owns the
// row; the payment subsystem only ever writes paymentstatus and the status
// change it implies (PENDING → PROCESSING on payment).
type Order struct {
	OrderID        int64         `db:"orderid" json:"order_id"`
	OrderNumber    string        `db:"ordernumber" json:"order_number"`
	CustomerID     int64         `db:"customerid" json:"customer_id"`
	CustomerEmail  string        `db:"customeremail" json:"customer_email"`
	Status         OrderStatus   `db:"status" json:"status"`
	PaymentStatus  PaymentStatus `db:"paymentstatus" json:"payment_status"`
	Total          int64         `db:"total" json:"total"`
	ShippingStatus *string       `db:"shippingstatus" json:"shipping_status,omitempty"`
	CreatedAt      time.Time     `db:"createdat" json:"created_at"`
}
