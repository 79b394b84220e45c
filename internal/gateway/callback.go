package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// StatusComplete is the only callback status that can lead to finalization.
const StatusComplete = "COMPLETE"

var ErrMalformedCallback = errors.New("malformed callback payload")

// Callback is the decoded `data` field the gateway redirects back with.
type Callback struct {
	TransactionCode  string
	Status           string
	TotalAmount      string
	TransactionID    string
	ProductCode      string
	SignedFieldNames string
	Signature        string

	values map[string]string
}

// DecodeCallback base64-decodes data and parses it either as URL parameters
// or as a flat JSON object of strings.
func DecodeCallback(data string) (*Callback, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("%w: empty data", ErrMalformedCallback)
	}

	raw, err := decodeBase64(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	values, err := parseValues(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	return &Callback{
		TransactionCode:  values["transaction_code"],
		Status:           values["status"],
		TotalAmount:      values["total_amount"],
		TransactionID:    values["transaction_uuid"],
		ProductCode:      values["product_code"],
		SignedFieldNames: values["signed_field_names"],
		Signature:        values["signature"],
		values:           values,
	}, nil
}

func decodeBase64(data string) ([]byte, error) {
	// Form decoding turns an unescaped '+' into a space.
	data = strings.ReplaceAll(data, " ", "+")
	if raw, err := base64.StdEncoding.DecodeString(data); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(data)
}

func parseValues(raw []byte) (map[string]string, error) {
	text := strings.TrimSpace(string(raw))
	values := make(map[string]string)

	if strings.HasPrefix(text, "{") {
		var obj map[string]interface{}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, err
		}
		for k, v := range obj {
			switch tv := v.(type) {
			case string:
				values[k] = tv
			case json.Number:
				values[k] = tv.String()
			case bool:
				values[k] = fmt.Sprint(tv)
			}
		}
		return values, nil
	}

	query, err := url.ParseQuery(text)
	if err != nil {
		return nil, err
	}
	for k := range query {
		values[k] = query.Get(k)
	}
	return values, nil
}

// Value returns any decoded field by its gateway name.
func (c *Callback) Value(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Values returns a copy of every decoded field.
func (c *Callback) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Complete reports whether the gateway claims the payment went through.
func (c *Callback) Complete() bool {
	return c.Status == StatusComplete
}

// Validate checks the fields a success callback must carry.
func (c *Callback) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"transaction_code": c.TransactionCode,
		"status":           c.Status,
		"total_amount":     c.TotalAmount,
		"transaction_uuid": c.TransactionID,
		"signature":        c.Signature,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedCallback, strings.Join(missing, ", "))
	}
	return nil
}

// SignedFields resolves signed_field_names against the payload, defaulting
// to the payment request fields when the gateway did not list them.
func (c *Callback) SignedFields() ([]Field, error) {
	names := PaymentSignedFieldNames
	if c.SignedFieldNames != "" {
		names = strings.Split(c.SignedFieldNames, ",")
	}

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		v, ok := c.values[name]
		if !ok {
			return nil, fmt.Errorf("%w: signed field %q absent", ErrMalformedCallback, name)
		}
		fields = append(fields, Field{Name: name, Value: v})
	}
	return fields, nil
}

// VerifyCallback checks the callback signature with s.
func (s *Signer) VerifyCallback(c *Callback) error {
	fields, err := c.SignedFields()
	if err != nil {
		return err
	}
	return s.Verify(c.Signature, fields...)
}
