package orderrpc

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type Order struct {
	OrderID       string   `json:"order_id"`
	UserID        string   `json:"user_id,omitempty"`
	Items         []*Item  `json:"items"`
	Total         string   `json:"total"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	TransactionID string   `json:"transaction_id,omitempty"`
	GatewayRef    string   `json:"gateway_ref,omitempty"`
	Backordered   []string `json:"backordered,omitempty"`
	// Timestamps are RFC 3339 in UTC.
	PaidAt    string `json:"paid_at,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type GetOrderResponse struct {
	Order *Order `json:"order"`
}

type ListOrdersRequest struct {
	// UserID defaults to the caller. Admins may name any user.
	UserID string `json:"user_id,omitempty"`
}

type ListOrdersResponse struct {
	Orders []*Order `json:"orders"`
}

type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type UpdateOrderStatusResponse struct {
	Order *Order `json:"order"`
}
