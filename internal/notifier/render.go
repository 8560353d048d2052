package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/web3guy0/coinwatch/internal/market"
)

// Renderer turns events into plain-text chat messages. Plain text is used
// because coin names routinely contain Markdown control characters.
type Renderer struct {
	source   string
	currency string
	printer  *message.Printer
}

// NewRenderer creates a renderer that labels prices in vsCurrency.
func NewRenderer(source, vsCurrency string) Renderer {
	return Renderer{
		source:   source,
		currency: strings.ToLower(vsCurrency),
		printer:  message.NewPrinter(language.English),
	}
}

// Render formats event.
func (r Renderer) Render(event market.Event) string {
	c := event.Coin
	var b strings.Builder

	switch event.Kind {
	case market.NewListing:
		b.WriteString("🚨 New coin on the market!\n\n")
		fmt.Fprintf(&b, "💰 Name: %s (%s)\n", c.Name, c.Ticker())
		fmt.Fprintf(&b, "📊 Price: %s\n", r.money(c.CurrentPrice, 6))
		fmt.Fprintf(&b, "💸 Market cap: %s\n", r.money(c.MarketCap, 0))
		fmt.Fprintf(&b, "📈 24h volume: %s\n", r.money(c.TotalVolume, 0))
		fmt.Fprintf(&b, "📉 24h change: %s\n", percent(c.PriceChange24h))
	case market.RapidMove:
		emoji := "🚀"
		if event.ChangePct.IsNegative() {
			emoji = "🔻"
		}
		fmt.Fprintf(&b, "⚡ Rapid move: %s (%s)\n\n", c.Name, c.Ticker())
		fmt.Fprintf(&b, "%s %s change: %s\n", emoji, event.Window, percent(decimal.NewNullDecimal(event.ChangePct)))
		fmt.Fprintf(&b, "📊 Price: %s\n", r.money(c.CurrentPrice, 6))
		fmt.Fprintf(&b, "💸 Market cap: %s\n", r.money(c.MarketCap, 0))
		fmt.Fprintf(&b, "📈 24h volume: %s\n", r.money(c.TotalVolume, 0))
	default:
		fmt.Fprintf(&b, "📌 %s: %s (%s)\n", event.Kind, c.Name, c.Ticker())
	}

	fmt.Fprintf(&b, "🌐 Source: %s", r.source)
	return b.String()
}

func (r Renderer) money(v decimal.NullDecimal, places int) string {
	if !v.Valid {
		return "n/a"
	}
	amount := r.printer.Sprintf(fmt.Sprintf("%%.%df", places), v.Decimal.Round(int32(places)).InexactFloat64())
	if r.currency == "usd" {
		return "$" + amount
	}
	return amount + " " + strings.ToUpper(r.currency)
}

func percent(v decimal.NullDecimal) string {
	if !v.Valid {
		return "n/a"
	}
	s := v.Decimal.StringFixed(2) + "%"
	if v.Decimal.IsPositive() {
		return "+" + s
	}
	return s
}
