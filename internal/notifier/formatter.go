package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"Cryptobot/internal/model"
)

func money(v float64) string { return humanize.FormatFloat("#,###.##", v) }

// FormatOrder describes a placed order and the decision behind it.
func FormatOrder(r *model.OrderReceipt, d *model.TradeDecision, coin, quote string) string {
	var b strings.Builder
	amount := fmt.Sprintf("%s %s", d.Funds.StringFixed(2), quote)
	if d.Side == model.SideSell {
		amount = fmt.Sprintf("%s %s", d.Size.String(), coin)
	}
	fmt.Fprintf(&b, "Placed %s order for %s on %s.\n", strings.ToUpper(string(d.Side)), amount, r.Product)
	fmt.Fprintf(&b, "Movement score %+.4f (previous %+.4f), change %.4f, multiplier %.4f.\n",
		d.CurrentScore, d.PreviousScore, d.ChangeScore, d.Multiplier)
	fmt.Fprintf(&b, "Order %s, status %s.", orDash(r.ID), r.Status)
	return b.String()
}

// FormatBalance describes the account marked to market at price.
func FormatBalance(bal model.BalanceSnapshot, price float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s available, %s total\n", bal.Base.Currency,
		humanize.FormatFloat("#,###.########", bal.Base.Available), humanize.FormatFloat("#,###.########", bal.Base.Total))
	fmt.Fprintf(&b, "%s: %s available, %s total\n", bal.Quote.Currency, money(bal.Quote.Available), money(bal.Quote.Total))
	if price > 0 {
		fmt.Fprintf(&b, "Price: %s %s\n", money(price), bal.Quote.Currency)
		fmt.Fprintf(&b, "Portfolio value: %s %s", money(bal.PortfolioValue(price)), bal.Quote.Currency)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatScore describes the latest movement score relative to now.
func FormatScore(rec *model.ScoreRecord, now time.Time) string {
	if rec == nil {
		return "No movement score recorded yet."
	}
	trend := "bull"
	switch {
	case rec.Score < 0:
		trend = "bear"
	case rec.Score == 0:
		trend = "flat"
	}
	return fmt.Sprintf("%s movement score %+.4f (%s), recorded %s.",
		rec.Product, rec.Score, trend, humanize.RelTime(rec.Timestamp, now, "ago", "from now"))
}

// FormatOrders lists recent orders, newest first.
func FormatOrders(orders []model.OrderReceipt, now time.Time) string {
	if len(orders) == 0 {
		return "No orders recorded yet."
	}
	var b strings.Builder
	for _, o := range orders {
		amount := o.Funds.String()
		if !o.Size.IsZero() {
			amount = o.Size.String()
		}
		fmt.Fprintf(&b, "%s %s %s (%s) %s\n", strings.ToUpper(string(o.Side)), amount, o.Product, o.Status,
			humanize.RelTime(o.CreatedAt, now, "ago", "from now"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
