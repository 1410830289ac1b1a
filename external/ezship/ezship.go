package ezship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Client talks to the logistics provider that prints shipping labels for
// paid orders. Only invoked after a payment transition committed.
type Client struct {
	apiKey  string
	suID    string
	client  *http.Client
	baseURL string
}

func NewClient() (*Client, error) {
	key := os.Getenv("EZSHIP_API_KEY")
	if key == "" {
		return nil, errors.New("EZSHIP_API_KEY not set")
	}
	suID := os.Getenv("EZSHIP_SU_ID")
	if suID == "" {
		return nil, errors.New("EZSHIP_SU_ID not set")
	}

	return &Client{
		apiKey: key,
		suID:   suID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: "https://api.ezship.com.tw",
	}, nil
}

type shipmentRequest struct {
	SuID       string `json:"su_id"`
	OrderID    string `json:"order_id"`
	OrderNo    string `json:"order_no"`
	OrderState string `json:"order_state"`
}

// CreateShipment asks the provider to open a shipment for the order. The
// payment service calls this fire-and-forget; idempotency on the provider
// side keys on order_id, so a rare double call is harmless.
func (c *Client) CreateShipment(ctx context.Context, orderID int64, orderNumber string) error {
	body := shipmentRequest{
		SuID:       c.suID,
		OrderID:    strconv.FormatInt(orderID, 10),
		OrderNo:    orderNumber,
		OrderState: "paid",
	}

	b, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/orders",
		bytes.NewBuffer(b),
	)

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		return errors.New("failed to create shipment: " + buf.String())
	}

	return nil
}
