package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testSecret = "8gBm/:&EnhH.1/q"

func TestMessage_FixedFieldOrder(t *testing.T) {
	msg := Message(PaymentFields("100", "shop-abc-1", "EPAYTEST")...)
	assert.Equal(t, "total_amount=100,transaction_uuid=shop-abc-1,product_code=EPAYTEST", msg)
}

func TestNewSigner_RejectsMissingOrPlaceholderSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty", secret: ""},
		{name: "placeholder", secret: PlaceholderSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewSigner(tt.secret)
			assert.Nil(t, signer)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestSigner_SignPaymentMatchesHMAC(t *testing.T) {
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("total_amount=110,transaction_uuid=241028,product_code=EPAYTEST"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, signer.SignPayment("110", "241028", "EPAYTEST"))
}

func TestSigner_VerifyDetectsTamperedField(t *testing.T) {
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)

	sig := signer.SignPayment("200", "shop-1-99", "EPAYTEST")
	require.NoError(t, signer.Verify(sig, PaymentFields("200", "shop-1-99", "EPAYTEST")...))

	tests := []struct {
		name   string
		fields []Field
	}{
		{name: "amount", fields: PaymentFields("201", "shop-1-99", "EPAYTEST")},
		{name: "amount spelling", fields: PaymentFields("200.00", "shop-1-99", "EPAYTEST")},
		{name: "transaction id", fields: PaymentFields("200", "shop-1-100", "EPAYTEST")},
		{name: "product code", fields: PaymentFields("200", "shop-1-99", "EPAYLIVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, signer.Verify(sig, tt.fields...), ErrSignatureMismatch)
		})
	}
}

func TestSigner_DifferentSecretsDisagree(t *testing.T) {
	a, err := NewSigner("secret-a")
	require.NoError(t, err)
	b, err := NewSigner("secret-b")
	require.NoError(t, err)

	sig := a.SignPayment("10", "tx", "EPAYTEST")
	assert.ErrorIs(t, b.Verify(sig, PaymentFields("10", "tx", "EPAYTEST")...), ErrSignatureMismatch)
}

func TestSigner_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secret := rapid.StringMatching(`[A-Za-z0-9/:&.]{1,32}`).Draw(t, "secret")
		if secret == PlaceholderSecret {
			t.Skip("placeholder secret")
		}
		signer, err := NewSigner(secret)
		if err != nil {
			t.Fatalf("NewSigner: %v", err)
		}

		amount := FormatAmount(decimal.New(rapid.Int64Range(1, 1_000_000_000).Draw(t, "minor"), -2))
		tx := rapid.StringMatching(`[a-z]{3,10}-[0-9a-f]{8}-[0-9]{1,19}`).Draw(t, "tx")
		code := rapid.StringMatching(`[A-Z]{4,10}`).Draw(t, "code")

		sig := signer.SignPayment(amount, tx, code)
		if err := signer.Verify(sig, PaymentFields(amount, tx, code)...); err != nil {
			t.Fatalf("round trip failed: %v", err)
		}

		fields := PaymentFields(amount, tx, code)
		which := rapid.IntRange(0, len(fields)-1).Draw(t, "field")
		fields[which].Value += "x"
		if err := signer.Verify(sig, fields...); err == nil {
			t.Fatalf("tampered field %s still verified", fields[which].Name)
		}
	})
}

func TestFormatAmount_Canonical(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{in: decimal.NewFromInt(200), want: "200"},
		{in: decimal.New(20000, -2), want: "200"},
		{in: decimal.New(10050, -2), want: "100.5"},
		{in: decimal.New(1, 3), want: "1000"},
		{in: decimal.RequireFromString("0.10"), want: "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.in))
		})
	}
}

func TestFormatAmount_StableUnderReparse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := decimal.New(rapid.Int64Range(0, 1<<40).Draw(t, "coef"), -int32(rapid.IntRange(0, 4).Draw(t, "scale")))
		s := FormatAmount(d)
		back, err := ParseAmount(s)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", s, err)
		}
		if FormatAmount(back) != s {
			t.Fatalf("re-rendered %q as %q", s, FormatAmount(back))
		}
		if !back.Equal(d) {
			t.Fatalf("value changed: %s != %s", back, d)
		}
	})
}
