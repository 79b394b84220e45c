package rest

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Amounts may arrive as JSON numbers or decimal strings.
const createOrderSchema = `{
	"type": "object",
	"required": ["items", "customerInfo", "total"],
	"additionalProperties": false,
	"properties": {
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["product", "quantity"],
				"additionalProperties": false,
				"properties": {
					"product": {"type": "string"},
					"name": {"type": "string"},
					"quantity": {"type": "integer"},
					"price": {"type": ["number", "string"]}
				}
			}
		},
		"customerInfo": {
			"type": "object",
			"required": ["name", "email", "phone", "address"],
			"properties": {
				"name": {"type": "string"},
				"email": {"type": "string"},
				"phone": {"type": "string"},
				"address": {"type": "string"}
			}
		},
		"total": {"type": ["number", "string"]}
	}
}`

const initiatePaymentSchema = `{
	"type": "object",
	"required": ["orderId", "amount"],
	"additionalProperties": false,
	"properties": {
		"orderId": {"type": "string"},
		"amount": {"type": ["number", "string"]}
	}
}`

const updateStatusSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string"}
	}
}`

type schemas struct {
	createOrder     *gojsonschema.Schema
	initiatePayment *gojsonschema.Schema
	updateStatus    *gojsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	compile := func(name, src string) (*gojsonschema.Schema, error) {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
		}
		return s, nil
	}

	createOrder, err := compile("create order", createOrderSchema)
	if err != nil {
		return nil, err
	}
	initiatePayment, err := compile("initiate payment", initiatePaymentSchema)
	if err != nil {
		return nil, err
	}
	updateStatus, err := compile("update status", updateStatusSchema)
	if err != nil {
		return nil, err
	}

	return &schemas{
		createOrder:     createOrder,
		initiatePayment: initiatePayment,
		updateStatus:    updateStatus,
	}, nil
}

// validateBody returns a client-facing description of every schema violation.
func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
