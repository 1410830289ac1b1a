package newebpay

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// MPG protocol constants.
const (
	respondType = "JSON"
	version     = "2.0"
)

// Wire names for the payment methods. ATM transfers go out as VACC.
const (
	MethodCredit  = "CREDIT"
	MethodVACC    = "VACC"
	MethodCVS     = "CVS"
	MethodBarcode = "BARCODE"
)

// Gateway status values after normalization. Anything other than SUCCESS or
// EXPIRED is a failure; the raw code is kept for the error message.
const (
	StatusSuccess = "SUCCESS"
	StatusExpired = "EXPIRED"
)

// TradeOrder is one outbound payment attempt before encryption.
type TradeOrder struct {
	MerchantOrderNo string
	Amount          int64
	ItemDesc        string
	Email           string
	Method          string
	NotifyURL       string
	ReturnURL       string
	Timestamp       int64
}

// BuildTradeParams assembles the flat MPG parameter set that gets encrypted
// into TradeInfo.
func BuildTradeParams(merchantID string, o TradeOrder) url.Values {
	v := url.Values{}
	v.Set("MerchantID", merchantID)
	v.Set("RespondType", respondType)
	v.Set("TimeStamp", strconv.FormatInt(o.Timestamp, 10))
	v.Set("Version", version)
	v.Set("MerchantOrderNo", o.MerchantOrderNo)
	v.Set("Amt", strconv.FormatInt(o.Amount, 10))
	v.Set("ItemDesc", o.ItemDesc)
	if o.Email != "" {
		v.Set("Email", o.Email)
	}
	v.Set("NotifyURL", o.NotifyURL)
	v.Set("ReturnURL", o.ReturnURL)
	// exactly one method flag per attempt
	v.Set(o.Method, "1")
	return v
}

// EncryptTrade runs the parameter set through the codec and attaches the
// checksum, producing the TradeInfo/TradeSha pair posted to the gateway.
func EncryptTrade(params url.Values, key, iv string) (tradeInfo, tradeSha string, err error) {
	tradeInfo, err = Encrypt(params.Encode(), key, iv)
	if err != nil {
		return "", "", err
	}
	return tradeInfo, Checksum(tradeInfo, key, iv), nil
}

// NotifyResult is the normalized form of a decrypted callback payload,
// identical for the notify and return paths.
type NotifyResult struct {
	Status          string
	Message         string
	MerchantOrderNo string
	TradeNo         string
	Amount          int64
	Method          string
	PayTime         string
	BankCode        string
	PayCode         string
	ExpireDate      string
}

type notifyEnvelope struct {
	Status  string          `json:"Status"`
	Message string          `json:"Message"`
	Result  json.RawMessage `json:"Result"`

	// flat payloads carry the result fields at the top level
	notifyFields
}

type notifyFields struct {
	MerchantOrderNo string      `json:"MerchantOrderNo"`
	TradeNo         string      `json:"TradeNo"`
	Amt             json.Number `json:"Amt"`
	PaymentType     string      `json:"PaymentType"`
	PayTime         string      `json:"PayTime"`
	BankCode        string      `json:"BankCode"`
	CodeNo          string      `json:"CodeNo"`
	Barcode1        string      `json:"Barcode_1"`
	ExpireDate      string      `json:"ExpireDate"`
}

// ParseNotify decodes a decrypted payload into a NotifyResult. Structured
// JSON is tried first (both the enveloped Status/Result shape and the flat
// legacy one), then the query-string format older gateway versions send. Any
// shape that yields no Status and no MerchantOrderNo is a CodecError, never a
// silently-ignored nil.
func ParseNotify(plain string) (*NotifyResult, error) {
	if r, ok := parseNotifyJSON(plain); ok {
		return r, nil
	}
	if r, ok := parseNotifyQuery(plain); ok {
		return r, nil
	}
	return nil, &CodecError{Reason: "unrecognized payload shape"}
}

func parseNotifyJSON(plain string) (*NotifyResult, bool) {
	var env notifyEnvelope
	if err := json.Unmarshal([]byte(plain), &env); err != nil {
		return nil, false
	}

	fields := env.notifyFields
	if len(env.Result) > 0 {
		var nested notifyFields
		if err := json.Unmarshal(env.Result, &nested); err == nil && nested.MerchantOrderNo != "" {
			fields = nested
		}
	}

	if env.Status == "" && fields.MerchantOrderNo == "" {
		return nil, false
	}

	amt, _ := fields.Amt.Int64()
	return &NotifyResult{
		Status:          env.Status,
		Message:         env.Message,
		MerchantOrderNo: fields.MerchantOrderNo,
		TradeNo:         fields.TradeNo,
		Amount:          amt,
		Method:          fields.PaymentType,
		PayTime:         fields.PayTime,
		BankCode:        fields.BankCode,
		PayCode:         payCode(fields),
		ExpireDate:      fields.ExpireDate,
	}, true
}

func parseNotifyQuery(plain string) (*NotifyResult, bool) {
	v, err := url.ParseQuery(plain)
	if err != nil {
		return nil, false
	}
	if v.Get("Status") == "" || v.Get("MerchantOrderNo") == "" {
		return nil, false
	}

	amt, _ := strconv.ParseInt(v.Get("Amt"), 10, 64)
	f := notifyFields{CodeNo: v.Get("CodeNo"), Barcode1: v.Get("Barcode_1")}
	return &NotifyResult{
		Status:          v.Get("Status"),
		Message:         v.Get("Message"),
		MerchantOrderNo: v.Get("MerchantOrderNo"),
		TradeNo:         v.Get("TradeNo"),
		Amount:          amt,
		Method:          v.Get("PaymentType"),
		PayTime:         v.Get("PayTime"),
		BankCode:        v.Get("BankCode"),
		PayCode:         payCode(f),
		ExpireDate:      v.Get("ExpireDate"),
	}, true
}

// payCode collapses the per-method code fields (ATM/CVS code number, barcode)
// into the single column the payments table keeps.
func payCode(f notifyFields) string {
	if f.CodeNo != "" {
		return f.CodeNo
	}
	return f.Barcode1
}
