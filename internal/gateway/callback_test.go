package gateway_test

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/gateway"
	"storefront/internal/gateway/gatewaytest"
)

func newSigner(t *testing.T) *gateway.Signer {
	t.Helper()
	signer, err := gateway.NewSigner("callback-secret")
	require.NoError(t, err)
	return signer
}

func completePayload() gatewaytest.Payload {
	return gatewaytest.Payload{
		TransactionCode: "000AWEO",
		Status:          "COMPLETE",
		TotalAmount:     "1000",
		TransactionID:   "shop-o1-1700000000",
		ProductCode:     "EPAYTEST",
	}
}

func TestDecodeCallback_URLParameters(t *testing.T) {
	signer := newSigner(t)
	data := gatewaytest.Encode(signer, completePayload())

	cb, err := gateway.DecodeCallback(data)
	require.NoError(t, err)

	assert.Equal(t, "000AWEO", cb.TransactionCode)
	assert.Equal(t, "shop-o1-1700000000", cb.TransactionID)
	assert.Equal(t, "1000", cb.TotalAmount)
	assert.True(t, cb.Complete())
	assert.NoError(t, cb.Validate())
	assert.NoError(t, signer.VerifyCallback(cb))
}

func TestDecodeCallback_JSONObject(t *testing.T) {
	signer := newSigner(t)
	data := gatewaytest.EncodeJSON(signer, completePayload())

	cb, err := gateway.DecodeCallback(data)
	require.NoError(t, err)

	assert.Equal(t, "shop-o1-1700000000", cb.TransactionID)
	assert.NoError(t, signer.VerifyCallback(cb))
}

func TestDecodeCallback_FormSpacesRestored(t *testing.T) {
	signer := newSigner(t)
	data := gatewaytest.Encode(signer, completePayload())

	// an unescaped '+' arrives as ' ' after form decoding
	cb, err := gateway.DecodeCallback(replacePlus(data))
	require.NoError(t, err)
	assert.Equal(t, "000AWEO", cb.TransactionCode)
}

func replacePlus(s string) string {
	out := []byte(s)
	for i := range out {
		if out[i] == '+' {
			out[i] = ' '
		}
	}
	return string(out)
}

func TestDecodeCallback_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "not base64", data: "%%%not-base64%%%"},
		{name: "bad json", data: base64.StdEncoding.EncodeToString([]byte("{not json"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gateway.DecodeCallback(tt.data)
			assert.ErrorIs(t, err, gateway.ErrMalformedCallback)
		})
	}
}

func TestCallback_ValidateReportsMissingFields(t *testing.T) {
	data := gatewaytest.EncodeRaw(url.Values{"status": {"COMPLETE"}, "transaction_uuid": {"tx"}})

	cb, err := gateway.DecodeCallback(data)
	require.NoError(t, err)

	err = cb.Validate()
	assert.ErrorIs(t, err, gateway.ErrMalformedCallback)
	assert.Contains(t, err.Error(), "transaction_code")
	assert.Contains(t, err.Error(), "signature")
}

func TestVerifyCallback_RejectsTamperedAmount(t *testing.T) {
	signer := newSigner(t)
	data := gatewaytest.Encode(signer, completePayload())

	raw, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)
	values, err := url.ParseQuery(string(raw))
	require.NoError(t, err)
	values.Set("total_amount", "1")

	cb, err := gateway.DecodeCallback(gatewaytest.EncodeRaw(values))
	require.NoError(t, err)
	assert.ErrorIs(t, signer.VerifyCallback(cb), gateway.ErrSignatureMismatch)
}

func TestVerifyCallback_DefaultsToPaymentFields(t *testing.T) {
	signer := newSigner(t)
	values := url.Values{
		"transaction_code": {"X1"},
		"status":           {"COMPLETE"},
		"total_amount":     {"50"},
		"transaction_uuid": {"tx-1"},
		"product_code":     {"EPAYTEST"},
		"signature":        {signer.SignPayment("50", "tx-1", "EPAYTEST")},
	}

	cb, err := gateway.DecodeCallback(gatewaytest.EncodeRaw(values))
	require.NoError(t, err)
	assert.NoError(t, signer.VerifyCallback(cb))
}

func TestVerifyCallback_SignedFieldAbsent(t *testing.T) {
	signer := newSigner(t)
	values := url.Values{
		"status":             {"COMPLETE"},
		"transaction_uuid":   {"tx-1"},
		"signed_field_names": {"total_amount,transaction_uuid"},
		"signature":          {"abc"},
	}

	cb, err := gateway.DecodeCallback(gatewaytest.EncodeRaw(values))
	require.NoError(t, err)
	assert.ErrorIs(t, signer.VerifyCallback(cb), gateway.ErrMalformedCallback)
}
