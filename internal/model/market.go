package model

import "time"

// PriceSample is a single observed price for a product.
type PriceSample struct {
	Product string
	Time    time.Time
	Spot    float64
	Bid     float64
	Ask     float64
	Volume  float64
	Source  string // "current", "historic" or "sim"
}

// CurrencyBalance holds one wallet of an account.
type CurrencyBalance struct {
	Currency  string
	Available float64
	Total     float64
}

// BalanceSnapshot holds the base and quote wallets of a product's account.
type BalanceSnapshot struct {
	Base  CurrencyBalance
	Quote CurrencyBalance
}

// PortfolioValue marks the account to market at the given price, in quote currency.
func (b BalanceSnapshot) PortfolioValue(price float64) float64 {
	return b.Quote.Total + b.Base.Total*price
}

// ProductID joins a base and quote currency into an exchange product id, e.g. "ETH-USD".
func ProductID(base, quote string) string {
	return base + "-" + quote
}
