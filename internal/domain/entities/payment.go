package entities

type PaymentMode string

const (
	ModeTest PaymentMode = "test"
	ModeLive PaymentMode = "live"
)

// PaymentRequest is what the client needs to hand the buyer over to the
// gateway. It is either a *TestRedirect or a *GatewayForm.
type PaymentRequest interface {
	Mode() PaymentMode
	Target() string
}

type TestRedirect struct {
	URL           string
	OrderID       string
	TransactionID string
	Amount        string
}

func (r *TestRedirect) Mode() PaymentMode { return ModeTest }
func (r *TestRedirect) Target() string    { return r.URL }

// GatewayForm is posted by the buyer's browser to the gateway form URL.
// Every value is a string; the signature covers SignedFieldNames.
type GatewayForm struct {
	URL                   string
	Amount                string
	TaxAmount             string
	TotalAmount           string
	TransactionID         string
	ProductCode           string
	ProductServiceCharge  string
	ProductDeliveryCharge string
	SuccessURL            string
	FailureURL            string
	SignedFieldNames      string
	Signature             string
}

func (f *GatewayForm) Mode() PaymentMode { return ModeLive }
func (f *GatewayForm) Target() string    { return f.URL }

// Fields renders the form with the gateway's field names.
func (f *GatewayForm) Fields() map[string]string {
	return map[string]string{
		"amount":                  f.Amount,
		"tax_amount":              f.TaxAmount,
		"total_amount":            f.TotalAmount,
		"transaction_uuid":        f.TransactionID,
		"product_code":            f.ProductCode,
		"product_service_charge":  f.ProductServiceCharge,
		"product_delivery_charge": f.ProductDeliveryCharge,
		"success_url":             f.SuccessURL,
		"failure_url":             f.FailureURL,
		"signed_field_names":      f.SignedFieldNames,
		"signature":               f.Signature,
	}
}

type SettlementOutcome string

const (
	OutcomeSuccess SettlementOutcome = "success"
	OutcomeFailure SettlementOutcome = "failure"
	OutcomePending SettlementOutcome = "pending"
)

// Settlement is the result of a gateway callback. Callbacks never surface
// errors to the gateway, only an outcome to redirect on.
type Settlement struct {
	Outcome SettlementOutcome
	OrderID string
}
