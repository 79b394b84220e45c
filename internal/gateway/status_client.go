package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrStatusUnavailable means the status lookup could not give an answer:
// transport error, timeout, non-200 or an unreadable body. It says nothing
// about whether the payment happened.
var ErrStatusUnavailable = errors.New("transaction status unavailable")

type TransactionStatus string

const (
	TxComplete      TransactionStatus = "COMPLETE"
	TxPending       TransactionStatus = "PENDING"
	TxAmbiguous     TransactionStatus = "AMBIGUOUS"
	TxNotFound      TransactionStatus = "NOT_FOUND"
	TxCanceled      TransactionStatus = "CANCELED"
	TxFullRefund    TransactionStatus = "FULL_REFUND"
	TxPartialRefund TransactionStatus = "PARTIAL_REFUND"
)

// Settled reports a confirmed successful payment.
func (s TransactionStatus) Settled() bool { return s == TxComplete }

// Undecided statuses may still turn into COMPLETE; ask again later.
func (s TransactionStatus) Undecided() bool { return s == TxPending || s == TxAmbiguous }

// Rejected statuses confirm the payment did not happen.
func (s TransactionStatus) Rejected() bool { return s == TxNotFound || s == TxCanceled }

type StatusQuery struct {
	ProductCode   string
	TotalAmount   string
	TransactionID string
}

type StatusResult struct {
	ProductCode   string            `json:"product_code"`
	TransactionID string            `json:"transaction_uuid"`
	TotalAmount   json.Number       `json:"total_amount"`
	Status        TransactionStatus `json:"status"`
	RefID         string            `json:"ref_id"`
}

// StatusClient queries the gateway's transaction status endpoint.
type StatusClient struct {
	baseURL string
	http    *http.Client
}

func NewStatusClient(baseURL string, timeout time.Duration) *StatusClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StatusClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *StatusClient) Check(ctx context.Context, q StatusQuery) (*StatusResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: status URL is not set", ErrConfiguration)
	}

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid status URL: %v", ErrConfiguration, err)
	}
	params := endpoint.Query()
	params.Set("product_code", q.ProductCode)
	params.Set("total_amount", q.TotalAmount)
	params.Set("transaction_uuid", q.TransactionID)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrStatusUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status endpoint returned %d", ErrStatusUnavailable, resp.StatusCode)
	}

	var result StatusResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", ErrStatusUnavailable, err)
	}
	if result.Status == "" {
		return nil, fmt.Errorf("%w: response has no status", ErrStatusUnavailable)
	}

	return &result, nil
}
