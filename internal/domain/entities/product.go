package entities

import "github.com/shopspring/decimal"

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	StockQty int             `json:"stockQty"`
	IsActive bool            `json:"isActive"`
}

func (p *Product) Available(quantity int) bool {
	return p.IsActive && p.StockQty >= quantity
}
