package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Eric920418/shoe-sub003/external/newebpay"
	"github.com/Eric920418/shoe-sub003/internal/config"
	"github.com/Eric920418/shoe-sub003/internal/middleware"
	"github.com/Eric920418/shoe-sub003/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnknownOrder: no order / payment attempt matches the identifier.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrInvalidState: the order is not payable in its current state.
	ErrInvalidState = errors.New("order not payable")
	// ErrForbidden: the order belongs to another customer.
	ErrForbidden = errors.New("forbidden")
)

// PaymentStore is implemented by repository.PaymentRepository.
type PaymentStore interface {
	CreatePending(ctx context.Context, p *model.Payment) error
	GetByMerchantOrderNo(ctx context.Context, merchantOrderNo string) (*model.Payment, error)
	GetLatestByOrderID(ctx context.Context, orderID int64) (*model.Payment, error)
	CountByOrderID(ctx context.Context, orderID int64) (int, error)
	Finalize(ctx context.Context, upd model.PaymentUpdate) (bool, error)
}

// OrderStore is implemented by repository.OrderRepository.
type OrderStore interface {
	GetOrderByID(ctx context.Context, orderID int64) (*model.Order, error)
}

// Mailer sends the post-payment confirmation notice.
type Mailer interface {
	SendPaymentConfirmation(ctx context.Context, toEmail, orderNumber string, amount int64) error
}

// ShipmentCreator asks logistics to create a shipping label for a paid order.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, orderID int64, orderNumber string) error
}

type PaymentService struct {
	Payments  PaymentStore
	Orders    OrderStore
	Mailer    Mailer
	Shipments ShipmentCreator
	Cfg       *config.GatewayConfig
	Log       *zap.Logger

	wg sync.WaitGroup
}

func NewPaymentService(
	payments PaymentStore,
	orders OrderStore,
	mailer Mailer,
	shipments ShipmentCreator,
	cfg *config.GatewayConfig,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		Payments:  payments,
		Orders:    orders,
		Mailer:    mailer,
		Shipments: shipments,
		Cfg:       cfg,
		Log:       log,
	}
}

// Wait blocks until all dispatched collaborator tasks have finished. Used on
// shutdown so in-flight mail/shipment calls are not cut off.
func (s *PaymentService) Wait() {
	s.wg.Wait()
}

// PaymentForm holds everything the client needs to build the auto-submitting
// form that posts the shopper to the gateway.
type PaymentForm struct {
	TradeInfo       string `json:"trade_info"`
	TradeSha        string `json:"trade_sha"`
	MerchantID      string `json:"merchant_id"`
	GatewayURL      string `json:"gateway_url"`
	MerchantOrderNo string `json:"merchant_order_no"`
}

// CreatePayment builds a new payment attempt for the order: a fresh
// merchantOrderNo ({orderNumber}-{attempt}), the encrypted parameter block,
// its checksum, and a PENDING payment row. Re-issuing a payment link always
// gets a new attempt suffix, so a merchantOrderNo already bound to a settled
// payment is never reused.
func (s *PaymentService) CreatePayment(
	ctx context.Context,
	orderID int64,
	customerID int64,
	paymentType model.PaymentType,
) (*PaymentForm, error) {

	if err := s.Cfg.Validate(); err != nil {
		return nil, err
	}
	if !model.ValidPaymentType(paymentType) {
		return nil, fmt.Errorf("%w: unsupported payment type %q", ErrInvalidState, paymentType)
	}

	order, err := s.Orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, ErrUnknownOrder
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if order.Status != model.OrderPending || order.PaymentStatus == model.PaymentPaid {
		return nil, ErrInvalidState
	}

	attempts, err := s.Payments.CountByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	merchantOrderNo := fmt.Sprintf("%s-%d", order.OrderNumber, attempts+1)

	params := newebpay.BuildTradeParams(s.Cfg.MerchantID, newebpay.TradeOrder{
		MerchantOrderNo: merchantOrderNo,
		Amount:          order.Total,
		ItemDesc:        "shoe-sub003 order " + order.OrderNumber,
		Email:           order.CustomerEmail,
		Method:          wireMethod(paymentType),
		NotifyURL:       s.Cfg.NotifyURL(),
		ReturnURL:       s.Cfg.ReturnURL(),
		Timestamp:       time.Now().Unix(),
	})
	tradeInfo, tradeSha, err := newebpay.EncryptTrade(params, s.Cfg.HashKey, s.Cfg.HashIV)
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		PaymentID:       uuid.NewString(),
		OrderID:         order.OrderID,
		MerchantOrderNo: merchantOrderNo,
		Amount:          order.Total,
		PaymentType:     paymentType,
		Status:          model.PaymentPending,
		CreatedAt:       time.Now(),
	}
	if err := s.Payments.CreatePending(ctx, payment); err != nil {
		return nil, err
	}

	s.Log.Info("payment attempt created",
		zap.String("merchant_order_no", merchantOrderNo),
		zap.Int64("order_id", order.OrderID),
		zap.String("payment_type", string(paymentType)),
		zap.Int64("amount", order.Total))

	return &PaymentForm{
		TradeInfo:       tradeInfo,
		TradeSha:        tradeSha,
		MerchantID:      s.Cfg.MerchantID,
		GatewayURL:      s.Cfg.GatewayURL,
		MerchantOrderNo: merchantOrderNo,
	}, nil
}

func wireMethod(t model.PaymentType) string {
	switch t {
	case model.PaymentTypeATM:
		return newebpay.MethodVACC
	case model.PaymentTypeCVS:
		return newebpay.MethodCVS
	case model.PaymentTypeBarcode:
		return newebpay.MethodBarcode
	default:
		return newebpay.MethodCredit
	}
}

// HandleNotify processes one gateway webhook delivery. Data-level problems
// (bad checksum, undecodable ciphertext, unknown merchantOrderNo, settled
// payment) are logged and swallowed: the endpoint must answer 200 or the
// gateway re-delivers indefinitely. Only storage failures come back as
// errors, so the gateway retries exactly the deliveries worth retrying.
func (s *PaymentService) HandleNotify(ctx context.Context, tradeInfo, tradeSha string) error {
	_, err := s.processCallback(ctx, tradeInfo, tradeSha, "notify")
	if err != nil && !isDataError(err) {
		return err
	}
	return nil
}

// HandleReturn is the browser-redirect counterpart. It runs the identical
// reconciliation (it must not assume the webhook fired first) and returns the
// result-page URL to redirect to. Failures map to a generic error page; no
// secret material or internal error text ever reaches the browser.
func (s *PaymentService) HandleReturn(ctx context.Context, tradeInfo, tradeSha string) string {
	res, err := s.processCallback(ctx, tradeInfo, tradeSha, "return")
	if err != nil {
		return s.resultPage("error", "")
	}
	return s.redirectFor(res)
}

type callbackResult struct {
	payment *model.Payment
	// incoming is the normalized status carried by this delivery; final is
	// the payment's status after reconciliation (which may be the previously
	// recorded one when this delivery lost the race or conflicted).
	incoming model.PaymentStatus
	final    model.PaymentStatus
	applied  bool
}

func (s *PaymentService) processCallback(ctx context.Context, tradeInfo, tradeSha, source string) (*callbackResult, error) {
	log := s.Log.With(zap.String("source", source))

	if !newebpay.VerifyChecksum(tradeInfo, tradeSha, s.Cfg.HashKey, s.Cfg.HashIV) {
		// security event: tampering, or test/production credential mismatch
		log.Warn("trade checksum mismatch",
			zap.Int("trade_info_len", len(tradeInfo)),
			zap.Int("trade_sha_len", len(tradeSha)),
			zap.Int("hash_key_len", len(s.Cfg.HashKey)),
			zap.Int("hash_iv_len", len(s.Cfg.HashIV)),
			zap.String("gateway_env", string(s.Cfg.Env)))
		return nil, newebpay.ErrChecksumMismatch
	}

	plain, err := newebpay.Decrypt(tradeInfo, s.Cfg.HashKey, s.Cfg.HashIV)
	if err != nil {
		log.Warn("trade info decrypt failed",
			zap.Error(err),
			zap.Int("trade_info_len", len(tradeInfo)),
			zap.Int("hash_key_len", len(s.Cfg.HashKey)),
			zap.Int("hash_iv_len", len(s.Cfg.HashIV)),
			zap.String("gateway_env", string(s.Cfg.Env)))
		return nil, err
	}

	res, err := newebpay.ParseNotify(plain)
	if err != nil {
		log.Warn("unrecognized trade payload", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("merchant_order_no", res.MerchantOrderNo))

	payment, err := s.Payments.GetByMerchantOrderNo(ctx, res.MerchantOrderNo)
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", res.MerchantOrderNo, err)
	}
	if payment == nil {
		log.Warn("callback for unknown merchant order")
		return nil, ErrUnknownOrder
	}

	incoming := normalizeStatus(res, payment.PaymentType)
	out := &callbackResult{payment: payment, incoming: incoming, final: payment.Status}

	if model.IsTerminal(payment.Status) {
		if payment.Status == incoming {
			log.Info("duplicate gateway callback", zap.String("status", string(incoming)))
		} else {
			// first-writer-wins: keep the recorded terminal state
			log.Warn("conflicting result for settled payment",
				zap.String("recorded", string(payment.Status)),
				zap.String("incoming", string(incoming)))
		}
		return out, nil
	}

	next, ok := model.Transition(payment.Status, incoming)
	if !ok {
		log.Warn("rejected payment transition",
			zap.String("current", string(payment.Status)),
			zap.String("incoming", string(incoming)))
		return out, nil
	}

	applied, err := s.Payments.Finalize(ctx, finalizeUpdate(res, payment, next, plain))
	if err != nil {
		return nil, fmt.Errorf("finalize payment %s: %w", res.MerchantOrderNo, err)
	}
	if !applied {
		// a concurrent delivery won the conditional update
		if fresh, err := s.Payments.GetByMerchantOrderNo(ctx, res.MerchantOrderNo); err == nil && fresh != nil {
			out.final = fresh.Status
		}
		log.Info("payment already transitioned by concurrent callback")
		return out, nil
	}
	out.applied = true
	out.final = next
	middleware.RecordPaymentProcessed(string(next))

	log.Info("payment transitioned",
		zap.String("from", string(payment.Status)),
		zap.String("to", string(next)),
		zap.String("trade_no", res.TradeNo))

	if next == model.PaymentPaid {
		order, err := s.Orders.GetOrderByID(ctx, payment.OrderID)
		if err != nil {
			log.Error("load order for collaborator dispatch", zap.Error(err), zap.Int64("order_id", payment.OrderID))
		} else {
			s.dispatchPostPayment(order, payment)
		}
	}
	return out, nil
}

// normalizeStatus maps the raw gateway result onto the payment state machine.
// A SUCCESS for an offline method that carries no PayTime is the
// order-created event (virtual account / code issued), not the payment.
func normalizeStatus(res *newebpay.NotifyResult, t model.PaymentType) model.PaymentStatus {
	switch res.Status {
	case newebpay.StatusSuccess:
		switch t {
		case model.PaymentTypeATM, model.PaymentTypeCVS, model.PaymentTypeBarcode:
			if res.PayTime == "" {
				return model.PaymentAwaiting
			}
		}
		return model.PaymentPaid
	case newebpay.StatusExpired:
		return model.PaymentExpired
	default:
		return model.PaymentFailed
	}
}

func finalizeUpdate(res *newebpay.NotifyResult, p *model.Payment, next model.PaymentStatus, plain string) model.PaymentUpdate {
	upd := model.PaymentUpdate{
		MerchantOrderNo: p.MerchantOrderNo,
		Next:            next,
		RawPayload:      []byte(plain),
	}
	if res.TradeNo != "" {
		upd.TradeNo = &res.TradeNo
	}
	if res.BankCode != "" {
		upd.BankCode = &res.BankCode
	}
	if res.PayCode != "" {
		upd.PayCode = &res.PayCode
	}
	if t := parseExpireDate(res.ExpireDate); t != nil {
		upd.ExpireAt = t
	}
	switch next {
	case model.PaymentPaid:
		now := time.Now()
		upd.PaidAt = &now
	case model.PaymentFailed, model.PaymentExpired:
		msg := res.Message
		if msg == "" {
			msg = res.Status
		}
		upd.ErrorMessage = &msg
	}
	return upd
}

func parseExpireDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func isDataError(err error) bool {
	var ce *newebpay.CodecError
	return errors.Is(err, newebpay.ErrChecksumMismatch) ||
		errors.Is(err, ErrUnknownOrder) ||
		errors.As(err, &ce)
}

// redirectFor picks the result page from the reconciled status and the
// payment method. The switch over the method set is exhaustive on purpose.
func (s *PaymentService) redirectFor(res *callbackResult) string {
	orderNo := res.payment.MerchantOrderNo
	switch res.final {
	case model.PaymentPaid:
		return s.resultPage("success", orderNo)
	case model.PaymentAwaiting:
		switch res.payment.PaymentType {
		case model.PaymentTypeATM, model.PaymentTypeCVS, model.PaymentTypeBarcode:
			return s.resultPage("pending", orderNo)
		case model.PaymentTypeCredit:
			// credit cards settle instantly; an awaiting credit payment
			// means something is off upstream
			return s.resultPage("error", orderNo)
		}
	case model.PaymentFailed, model.PaymentExpired:
		return s.resultPage("failed", orderNo)
	}
	return s.resultPage("error", orderNo)
}

func (s *PaymentService) resultPage(state, merchantOrderNo string) string {
	u := s.Cfg.FrontendURL + "/payment/result?state=" + state
	if merchantOrderNo != "" {
		u += "&order=" + url.QueryEscape(merchantOrderNo)
	}
	return u
}

// dispatchPostPayment hands the confirmation notice and the shipment trigger
// to background tasks after the state transition committed. Their failures
// are logged independently and never influence the HTTP response; a retried
// webhook is a no-op before it ever reaches this point, so each fires at most
// once per payment.
func (s *PaymentService) dispatchPostPayment(order *model.Order, payment *model.Payment) {
	s.dispatch("confirmation mail", func(ctx context.Context) error {
		return s.Mailer.SendPaymentConfirmation(ctx, order.CustomerEmail, order.OrderNumber, payment.Amount)
	})
	s.dispatch("shipment", func(ctx context.Context) error {
		return s.Shipments.CreateShipment(ctx, order.OrderID, order.OrderNumber)
	})
}

func (s *PaymentService) dispatch(task string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.Log.Error("collaborator call failed", zap.String("task", task), zap.Error(err))
		}
	}()
}

// PaymentStatusView is the read-only view other subsystems and the frontend
// may see; this service is the sole writer of the fields it contains.
type PaymentStatusView struct {
	OrderNumber     string              `json:"order_number"`
	OrderStatus     model.OrderStatus   `json:"order_status"`
	PaymentStatus   model.PaymentStatus `json:"payment_status"`
	MerchantOrderNo string              `json:"merchant_order_no,omitempty"`
	PaymentType     model.PaymentType   `json:"payment_type,omitempty"`
	TradeNo         *string             `json:"trade_no,omitempty"`
	BankCode        *string             `json:"bank_code,omitempty"`
	PayCode         *string             `json:"pay_code,omitempty"`
	ExpireAt        *time.Time          `json:"expire_at,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
}

// GetPaymentStatus returns the order's payment state plus the latest attempt,
// after an ownership check.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, orderID, customerID int64) (*PaymentStatusView, error) {
	order, err := s.Orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, ErrUnknownOrder
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}

	view := &PaymentStatusView{
		OrderNumber:   order.OrderNumber,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentStatus,
	}

	latest, err := s.Payments.GetLatestByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		view.MerchantOrderNo = latest.MerchantOrderNo
		view.PaymentType = latest.PaymentType
		view.TradeNo = latest.TradeNo
		view.BankCode = latest.BankCode
		view.PayCode = latest.PayCode
		view.ExpireAt = latest.ExpireAt
		view.PaidAt = latest.PaidAt
	}
	return view, nil
}
