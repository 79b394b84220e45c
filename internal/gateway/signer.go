// Package gateway talks the eSewa-style payment gateway protocol: HMAC
// signed form fields, base64 callback payloads and the server-to-server
// transaction status lookup.
package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// PlaceholderSecret is the value shipped in sample env files.
const PlaceholderSecret = "replace_with_esewa_secret"

var (
	ErrConfiguration     = errors.New("payment gateway is not configured")
	ErrSignatureMismatch = errors.New("signature does not match payload")
)

// PaymentSignedFieldNames lists the fields covered by a payment request
// signature, in signing order.
var PaymentSignedFieldNames = []string{"total_amount", "transaction_uuid", "product_code"}

type Field struct {
	Name  string
	Value string
}

// Message renders fields as name=value pairs joined by commas, in the order
// given. Both signing and verification go through here.
func Message(fields ...Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(f.Value)
	}
	return sb.String()
}

type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: secret key is not set", ErrConfiguration)
	}
	if secret == PlaceholderSecret {
		return nil, fmt.Errorf("%w: secret key is still the placeholder value", ErrConfiguration)
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the base64 HMAC-SHA256 of Message(fields...).
func (s *Signer) Sign(fields ...Field) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(Message(fields...)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Signer) SignPayment(totalAmount, transactionID, productCode string) string {
	return s.Sign(PaymentFields(totalAmount, transactionID, productCode)...)
}

// Verify recomputes the tag over fields and requires an exact match.
func (s *Signer) Verify(signature string, fields ...Field) error {
	expected := s.Sign(fields...)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

func PaymentFields(totalAmount, transactionID, productCode string) []Field {
	return []Field{
		{Name: "total_amount", Value: totalAmount},
		{Name: "transaction_uuid", Value: transactionID},
		{Name: "product_code", Value: productCode},
	}
}
