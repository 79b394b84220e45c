// Package gatewaytest builds gateway payloads and fakes the status lookup
// for tests.
package gatewaytest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"storefront/internal/gateway"
)

// Payload is the subset of callback fields tests usually vary.
type Payload struct {
	TransactionCode string
	Status          string
	TotalAmount     string
	TransactionID   string
	ProductCode     string
}

func (p Payload) signedFields() []gateway.Field {
	return []gateway.Field{
		{Name: "transaction_code", Value: p.TransactionCode},
		{Name: "status", Value: p.Status},
		{Name: "total_amount", Value: p.TotalAmount},
		{Name: "transaction_uuid", Value: p.TransactionID},
		{Name: "product_code", Value: p.ProductCode},
	}
}

// Encode signs p with signer and returns it as a base64 URL-parameter
// payload, the way the gateway redirects back.
func Encode(signer *gateway.Signer, p Payload) string {
	fields := p.signedFields()
	values := url.Values{}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		values.Set(f.Name, f.Value)
		names = append(names, f.Name)
	}
	values.Set("signed_field_names", strings.Join(names, ","))
	values.Set("signature", signer.Sign(fields...))
	return base64.StdEncoding.EncodeToString([]byte(values.Encode()))
}

// EncodeJSON is Encode with a JSON object body.
func EncodeJSON(signer *gateway.Signer, p Payload) string {
	fields := p.signedFields()
	obj := make(map[string]string, len(fields)+2)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		obj[f.Name] = f.Value
		names = append(names, f.Name)
	}
	obj["signed_field_names"] = strings.Join(names, ",")
	obj["signature"] = signer.Sign(fields...)
	raw, _ := json.Marshal(obj)
	return base64.StdEncoding.EncodeToString(raw)
}

// EncodeRaw base64-encodes arbitrary URL parameters without signing.
func EncodeRaw(values url.Values) string {
	return base64.StdEncoding.EncodeToString([]byte(values.Encode()))
}

// Verifier is a scripted status lookup.
type Verifier struct {
	mu     sync.Mutex
	Result *gateway.StatusResult
	Err    error
	calls  []gateway.StatusQuery
}

func NewVerifier(status gateway.TransactionStatus) *Verifier {
	return &Verifier{Result: &gateway.StatusResult{Status: status}}
}

func (v *Verifier) Check(ctx context.Context, q gateway.StatusQuery) (*gateway.StatusResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.calls = append(v.calls, q)
	if v.Err != nil {
		return nil, v.Err
	}
	result := *v.Result
	if result.TransactionID == "" {
		result.TransactionID = q.TransactionID
	}
	return &result, nil
}

func (v *Verifier) Set(result *gateway.StatusResult, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Result = result
	v.Err = err
}

func (v *Verifier) Calls() []gateway.StatusQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]gateway.StatusQuery(nil), v.calls...)
}
