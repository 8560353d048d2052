package watcher

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/coinwatch/internal/dedup"
	"github.com/web3guy0/coinwatch/internal/market"
)

// Rules are the classification thresholds.
type Rules struct {
	MarketCapFloor     decimal.Decimal
	RapidMoveThreshold decimal.Decimal
	RapidMoveWindow    market.Window

	// FloorGatesRapidMove skips the rapid-move rule for coins whose market
	// cap is absent or below the floor. Off by default: the floor only
	// guards new-listing alerts.
	FloorGatesRapidMove bool
}

// DefaultRules returns a 1M floor and a 10% 1h move threshold.
func DefaultRules() Rules {
	return Rules{
		MarketCapFloor:     decimal.NewFromInt(1_000_000),
		RapidMoveThreshold: decimal.NewFromInt(10),
		RapidMoveWindow:    market.Window1h,
	}
}

// Classifier turns snapshot records into events.
type Classifier struct {
	rules Rules
	seen  *dedup.Store
}

// NewClassifier creates a classifier backed by seen.
func NewClassifier(rules Rules, seen *dedup.Store) *Classifier {
	return &Classifier{rules: rules, seen: seen}
}

// Classify returns zero, one or two events for coin. It is safe to call
// concurrently: seen.Insert decides which caller reports a new listing.
//
// Coins under the floor are not recorded, so a coin that later grows past
// the floor is announced at that point.
func (c *Classifier) Classify(coin market.Coin) []market.Event {
	var events []market.Event

	aboveFloor := c.aboveFloor(coin)

	if aboveFloor && c.seen.Insert(coin.ID) {
		events = append(events, market.NewListingEvent(coin))
	}

	if aboveFloor || !c.rules.FloorGatesRapidMove {
		if pct, ok := c.rapidMove(coin); ok {
			events = append(events, market.RapidMoveEvent(coin, c.rules.RapidMoveWindow, pct))
		}
	}

	return events
}

// Seed records coin as seen without emitting anything. Floor rules still
// apply so that baseline and live behaviour agree.
func (c *Classifier) Seed(coin market.Coin) bool {
	if !c.aboveFloor(coin) {
		return false
	}
	return c.seen.Insert(coin.ID)
}

func (c *Classifier) aboveFloor(coin market.Coin) bool {
	return coin.MarketCap.Valid && coin.MarketCap.Decimal.GreaterThanOrEqual(c.rules.MarketCapFloor)
}

func (c *Classifier) rapidMove(coin market.Coin) (decimal.Decimal, bool) {
	change := coin.Change(c.rules.RapidMoveWindow)
	if !change.Valid {
		return decimal.Zero, false
	}
	if change.Decimal.Abs().GreaterThan(c.rules.RapidMoveThreshold) {
		return change.Decimal, true
	}
	return decimal.Zero, false
}
