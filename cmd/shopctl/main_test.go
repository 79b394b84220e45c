package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/gateway"
	"storefront/internal/gateway/gatewaytest"
)

const secret = "8gBm/:&EnhH.1/q"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSign(t *testing.T) {
	t.Setenv("ESEWA_SECRET_KEY", secret)

	out, err := run(t, "sign", "--total", "100.00", "--tx", "shop-abc-1")
	require.NoError(t, err)

	signer, err := gateway.NewSigner(secret)
	require.NoError(t, err)
	assert.Contains(t, out, "message:   total_amount=100,transaction_uuid=shop-abc-1,product_code=EPAYTEST")
	assert.Contains(t, out, "signature: "+signer.SignPayment("100", "shop-abc-1", "EPAYTEST"))
}

func TestSign_RequiresSecret(t *testing.T) {
	t.Setenv("ESEWA_SECRET_KEY", "")

	_, err := run(t, "sign", "--total", "100", "--tx", "shop-abc-1")
	assert.ErrorIs(t, err, gateway.ErrConfiguration)
}

func TestDecode(t *testing.T) {
	t.Setenv("ESEWA_SECRET_KEY", secret)

	signer, err := gateway.NewSigner(secret)
	require.NoError(t, err)
	data := gatewaytest.Encode(signer, gatewaytest.Payload{
		TransactionCode: "000AWEO",
		Status:          "COMPLETE",
		TotalAmount:     "100",
		TransactionID:   "shop-abc-1",
		ProductCode:     "EPAYTEST",
	})

	out, err := run(t, "decode", "--verify", data)
	require.NoError(t, err)
	assert.Contains(t, out, `"transaction_uuid": "shop-abc-1"`)
	assert.Contains(t, out, "signature: valid")

	other, err := gateway.NewSigner("another-secret")
	require.NoError(t, err)
	forged := gatewaytest.Encode(other, gatewaytest.Payload{
		TransactionCode: "000AWEO",
		Status:          "COMPLETE",
		TotalAmount:     "100",
		TransactionID:   "shop-abc-1",
		ProductCode:     "EPAYTEST",
	})
	_, err = run(t, "decode", "--verify", forged)
	assert.ErrorContains(t, err, "signature check failed")

	_, err = run(t, "decode", "%%%")
	assert.ErrorIs(t, err, gateway.ErrMalformedCallback)
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "--user", "ops", "--role", auth.RoleAdmin)
	require.NoError(t, err)

	verifier, err := auth.NewVerifier("cli-secret")
	require.NoError(t, err)
	id, err := verifier.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", id.UserID)
	assert.True(t, id.IsAdmin())

	_, err = run(t, "token")
	assert.Error(t, err)
}
