// Package market holds the feed records and the events derived from them.
package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coin is one entry of a market snapshot. Optional values are NullDecimal so
// that an absent field is never mistaken for zero.
type Coin struct {
	ID             string              `json:"id"`
	Symbol         string              `json:"symbol"`
	Name           string              `json:"name"`
	CurrentPrice   decimal.NullDecimal `json:"current_price"`
	MarketCap      decimal.NullDecimal `json:"market_cap"`
	MarketCapRank  *int                `json:"market_cap_rank"`
	TotalVolume    decimal.NullDecimal `json:"total_volume"`
	PriceChange24h decimal.NullDecimal `json:"price_change_percentage_24h"`
	PriceChange1h  decimal.NullDecimal `json:"price_change_percentage_1h_in_currency"`
	LastUpdated    *time.Time          `json:"last_updated"`
}

// Change returns the percentage price change reported for the window.
func (c Coin) Change(w Window) decimal.NullDecimal {
	switch w {
	case Window1h:
		return c.PriceChange1h
	case Window24h:
		return c.PriceChange24h
	}
	return decimal.NullDecimal{}
}

// Ticker is the upper-cased symbol, falling back to the id.
func (c Coin) Ticker() string {
	if c.Symbol == "" {
		return strings.ToUpper(c.ID)
	}
	return strings.ToUpper(c.Symbol)
}

// Window is a percentage-change lookback.
type Window string

const (
	Window1h  Window = "1h"
	Window24h Window = "24h"
)

// ParseWindow accepts "1h" or "24h".
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(strings.TrimSpace(s))) {
	case Window1h:
		return Window1h, nil
	case Window24h:
		return Window24h, nil
	}
	return "", fmt.Errorf("unknown change window %q (want 1h or 24h)", s)
}

// EventKind tags an Event.
type EventKind string

const (
	NewListing EventKind = "new_listing"
	RapidMove  EventKind = "rapid_move"
)

// Event is produced by classification and consumed once by the notifier.
// Window and ChangePct are only set for RapidMove.
type Event struct {
	Kind      EventKind
	Coin      Coin
	Window    Window
	ChangePct decimal.Decimal
}

// NewListingEvent builds a NewListing event.
func NewListingEvent(c Coin) Event {
	return Event{Kind: NewListing, Coin: c}
}

// RapidMoveEvent builds a RapidMove event for the given window.
func RapidMoveEvent(c Coin, w Window, pct decimal.Decimal) Event {
	return Event{Kind: RapidMove, Coin: c, Window: w, ChangePct: pct}
}
