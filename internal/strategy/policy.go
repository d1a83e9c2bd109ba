package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"Cryptobot/internal/config"
	"Cryptobot/internal/model"
)

// ErrUnclassifiableMarket is returned when the movement score is exactly zero and the
// market is neither bull nor bear.
var ErrUnclassifiableMarket = errors.New("market is neither bull nor bear")

// Policy sizes an order from the change between two consecutive movement scores.
type Policy struct {
	// Volatility controls how easily the bot trades; higher means more trades.
	Volatility int
	// MaxScore is the bound of the movement score curve.
	MaxScore float64

	MinBaseSize    decimal.Decimal
	MinQuoteFunds  decimal.Decimal
	BaseIncrement  decimal.Decimal
	QuoteIncrement decimal.Decimal
}

// NewPolicy builds a Policy from the bot configuration.
func NewPolicy(bot config.Bot, maxScore float64) (Policy, error) {
	p := Policy{
		Volatility:     bot.Volatility,
		MaxScore:       maxScore,
		MinBaseSize:    decimal.NewFromFloat(bot.MinTrade.Coin),
		MinQuoteFunds:  decimal.NewFromFloat(bot.MinTrade.Quote),
		BaseIncrement:  decimal.NewFromFloat(bot.Increment.Coin),
		QuoteIncrement: decimal.NewFromFloat(bot.Increment.Quote),
	}
	if _, err := p.MinChangeToAct(); err != nil {
		return Policy{}, err
	}
	if p.MaxScore <= 0 {
		return Policy{}, fmt.Errorf("%w: max score must be positive", config.ErrInvalidConfig)
	}
	return p, nil
}

// ChangeScore normalizes |current-previous| to [0,1]. Scores live in (-MaxScore, MaxScore),
// so two consecutive scores are at most 2*MaxScore apart.
func (p Policy) ChangeScore(current, previous float64) float64 {
	change := math.Abs(current-previous) / (2 * p.MaxScore)
	return math.Min(change, 1)
}

// MinChangeToAct is the smallest change score that justifies an order.
func (p Policy) MinChangeToAct() (float64, error) {
	if p.Volatility <= 0 {
		return 0, fmt.Errorf("%w: volatility must be positive, got %d", config.ErrInvalidConfig, p.Volatility)
	}
	return 1 / (2 * float64(p.Volatility)), nil
}

// ShouldAct reports whether the change between the two scores is large enough to trade.
// Callers use it to avoid fetching balances for cycles that end in no action.
func (p Policy) ShouldAct(current, previous float64) (bool, float64, error) {
	minChange, err := p.MinChangeToAct()
	if err != nil {
		return false, 0, err
	}
	change := p.ChangeScore(current, previous)
	return change >= minChange, change, nil
}

// Decide returns the order to place, or nil when no trade should be made.
func (p Policy) Decide(current, previous float64, bal model.BalanceSnapshot) (*model.TradeDecision, error) {
	act, change, err := p.ShouldAct(current, previous)
	if err != nil || !act {
		return nil, err
	}

	var side model.Side
	switch {
	case current > 0:
		side = model.SideBuy
	case current < 0:
		side = model.SideSell
	default:
		return nil, fmt.Errorf("%w: score %v", ErrUnclassifiableMarket, current)
	}

	multiplier := math.Sqrt(change)
	d := &model.TradeDecision{
		Side:          side,
		Size:          decimal.Zero,
		Funds:         decimal.Zero,
		ChangeScore:   change,
		Multiplier:    multiplier,
		CurrentScore:  current,
		PreviousScore: previous,
	}

	if side == model.SideBuy {
		funds := sizeFrom(bal.Quote.Available, multiplier, p.QuoteIncrement)
		if funds.IsZero() || funds.LessThan(p.MinQuoteFunds) {
			return nil, nil
		}
		d.Funds = funds
	} else {
		size := sizeFrom(bal.Base.Available, multiplier, p.BaseIncrement)
		if size.IsZero() || size.LessThan(p.MinBaseSize) {
			return nil, nil
		}
		d.Size = size
	}

	mustBeOneSided(d)
	return d, nil
}

// sizeFrom scales the available balance and rounds it to the nearest increment without
// exceeding what is available.
func sizeFrom(available, multiplier float64, increment decimal.Decimal) decimal.Decimal {
	if available <= 0 {
		return decimal.Zero
	}
	avail := decimal.NewFromFloat(available)
	amount := RoundToIncrement(decimal.NewFromFloat(available*multiplier), increment)
	if amount.GreaterThan(avail) && increment.IsPositive() {
		amount = amount.Sub(increment)
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// RoundToIncrement rounds amount to the nearest multiple of increment.
// A non-positive increment leaves the amount unchanged.
func RoundToIncrement(amount, increment decimal.Decimal) decimal.Decimal {
	if !increment.IsPositive() {
		return amount
	}
	return amount.Div(increment).Round(0).Mul(increment)
}

func mustBeOneSided(d *model.TradeDecision) {
	sizeSet, fundsSet := !d.Size.IsZero(), !d.Funds.IsZero()
	if sizeSet == fundsSet {
		panic(fmt.Sprintf("trade decision must set exactly one of size and funds: size=%s funds=%s", d.Size, d.Funds))
	}
	if d.Size.IsNegative() || d.Funds.IsNegative() {
		panic(fmt.Sprintf("trade decision has a negative amount: size=%s funds=%s", d.Size, d.Funds))
	}
}
