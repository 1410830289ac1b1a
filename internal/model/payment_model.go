package model

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentAwaiting PaymentStatus = "AWAITING_PAYMENT"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentExpired  PaymentStatus = "EXPIRED"
)

type PaymentType string

const (
	PaymentTypeCredit  PaymentType = "CREDIT"
	PaymentTypeATM     PaymentType = "ATM"
	PaymentTypeCVS     PaymentType = "CVS"
	PaymentTypeBarcode PaymentType = "BARCODE"
)

// ValidPaymentType reports whether t is one of the supported methods.
func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentTypeCredit, PaymentTypeATM, PaymentTypeCVS, PaymentTypeBarcode:
		return true
	}
	return false
}

type Payment struct {
	PaymentID       string        `db:"paymentid" json:"payment_id"`
	OrderID         int64         `db:"orderid" json:"order_id"`
	MerchantOrderNo string        `db:"merchantorderno" json:"merchant_order_no"`
	TradeNo         *string       `db:"tradeno" json:"trade_no"`
	Amount          int64         `db:"amount" json:"amount"`
	PaymentType     PaymentType   `db:"paymenttype" json:"payment_type"`
	Status          PaymentStatus `db:"paymentstatus" json:"payment_status"`
	BankCode        *string       `db:"bankcode" json:"bank_code"`
	PayCode         *string       `db:"paycode" json:"pay_code"`
	ExpireAt        *time.Time    `db:"expireat" json:"expire_at"`
	ErrorMessage    *string       `db:"errormessage" json:"error_message"`
	RawPayload      []byte        `db:"rawpayload" json:"-"`
	CreatedAt       time.Time     `db:"createdat" json:"created_at"`
	PaidAt          *time.Time    `db:"paidat" json:"paid_at"`
}

// PaymentUpdate carries one state transition for Finalize. Nil optional
// fields leave the corresponding columns untouched.
type PaymentUpdate struct {
	MerchantOrderNo string
	Next            PaymentStatus
	TradeNo         *string
	BankCode        *string
	PayCode         *string
	ExpireAt        *time.Time
	ErrorMessage    *string
	RawPayload      []byte
	PaidAt          *time.Time
}

// IsTerminal reports whether no further transition is permitted out of s.
func IsTerminal(s PaymentStatus) bool {
	switch s {
	case PaymentPaid, PaymentFailed, PaymentExpired:
		return true
	}
	return false
}

// Transition is the pure state machine for a payment attempt:
//
//	PENDING → AWAITING_PAYMENT → {PAID, EXPIRED}
//	PENDING → {PAID, FAILED}
//
// It returns the next status and whether a transition actually happens.
// Terminal states never regress: the current status comes back unchanged.
func Transition(current, incoming PaymentStatus) (PaymentStatus, bool) {
	if current == incoming || IsTerminal(current) {
		return current, false
	}
	switch current {
	case PaymentPending:
		switch incoming {
		case PaymentAwaiting, PaymentPaid, PaymentFailed:
			return incoming, true
		}
	case PaymentAwaiting:
		switch incoming {
		case PaymentPaid, PaymentExpired:
			return incoming, true
		}
	}
	return current, false
}

// TransitionSources returns the statuses a payment must currently be in for
// next to be a legal target. The repository uses this set in its conditional
// UPDATE so concurrent callbacks race on the row, not on in-process locks.
func TransitionSources(next PaymentStatus) []PaymentStatus {
	switch next {
	case PaymentAwaiting:
		return []PaymentStatus{PaymentPending}
	case PaymentPaid:
		return []PaymentStatus{PaymentPending, PaymentAwaiting}
	case PaymentFailed:
		return []PaymentStatus{PaymentPending}
	case PaymentExpired:
		return []PaymentStatus{PaymentAwaiting}
	}
	return nil
}
