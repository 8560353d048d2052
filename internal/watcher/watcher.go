// Package watcher runs the fetch → classify → notify cycle on a fixed period.
package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/web3guy0/coinwatch/internal/dedup"
	"github.com/web3guy0/coinwatch/internal/market"
)

// Fetcher returns one market snapshot.
type Fetcher interface {
	FetchMarkets(ctx context.Context) ([]market.Coin, error)
}

// Notifier delivers one event.
type Notifier interface {
	Notify(ctx context.Context, event market.Event) error
}

// Options configures the poll loop.
type Options struct {
	Interval     time.Duration
	FirstDelay   time.Duration
	FetchTimeout time.Duration

	// BaselineFirstCycle marks everything in the first successful snapshot
	// as seen without announcing it.
	BaselineFirstCycle bool
}

// Stats is a snapshot of loop progress for status reporting.
type Stats struct {
	Cycles           int
	FailedCycles     int
	SkippedTicks     int
	LastCycleAt      time.Time
	LastDuration     time.Duration
	LastError        string
	LastNewListings  int
	LastRapidMoves   int
	LastSendFailures int
	Tracked          int
}

// Watcher owns the poll loop. Only one cycle runs at a time.
type Watcher struct {
	fetcher    Fetcher
	classifier *Classifier
	notifier   Notifier
	seen       *dedup.Store
	opts       Options

	seeded bool // loop goroutine only

	mu    sync.RWMutex
	stats Stats
}

// New creates a watcher. seen must be the store the classifier was built on.
func New(fetcher Fetcher, classifier *Classifier, notifier Notifier, seen *dedup.Store, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.FetchTimeout <= 0 || opts.FetchTimeout > opts.Interval {
		opts.FetchTimeout = opts.Interval
	}
	return &Watcher{
		fetcher:    fetcher,
		classifier: classifier,
		notifier:   notifier,
		seen:       seen,
		opts:       opts,
	}
}

// Run polls until ctx is done.
//
// Ticks are aligned to the start of the previous cycle. If a cycle overruns
// one or more ticks, those ticks are dropped rather than queued and the loop
// waits for the next aligned slot.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().
		Dur("interval", w.opts.Interval).
		Dur("first_delay", w.opts.FirstDelay).
		Dur("fetch_timeout", w.opts.FetchTimeout).
		Bool("baseline", w.opts.BaselineFirstCycle).
		Msg("👀 Watcher started")

	timer := time.NewTimer(w.opts.FirstDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Watcher stopped")
			return ctx.Err()
		case <-timer.C:
		}

		start := time.Now()
		_ = w.RunCycle(ctx)

		next, skipped := nextTick(start, w.opts.Interval, time.Now())
		if skipped > 0 {
			w.mu.Lock()
			w.stats.SkippedTicks += skipped
			w.mu.Unlock()
			log.Warn().
				Int("skipped", skipped).
				Dur("interval", w.opts.Interval).
				Msg("⏱️ Cycle overran its interval, skipping ticks")
		}
		timer.Reset(time.Until(next))
	}
}

// RunCycle performs one fetch → classify → notify pass. A fetch error is
// returned after logging; nothing is classified in that case. Send failures
// are counted but never returned.
func (w *Watcher) RunCycle(ctx context.Context) error {
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, w.opts.FetchTimeout)
	coins, err := w.fetcher.FetchMarkets(fetchCtx)
	cancel()
	if err != nil {
		if !errors.Is(ctx.Err(), context.Canceled) {
			log.Error().Err(err).Msg("❌ Market fetch failed, cycle skipped")
		}
		w.finishCycle(start, err, nil, 0)
		return err
	}

	if w.opts.BaselineFirstCycle && !w.seeded {
		seeded := 0
		for _, coin := range coins {
			if w.classifier.Seed(coin) {
				seeded++
			}
		}
		w.seeded = true
		log.Info().Int("seeded", seeded).Msg("🌱 Baseline recorded, new listings from next cycle")
	}

	var events []market.Event
	for _, coin := range coins {
		events = append(events, w.classifier.Classify(coin)...)
	}

	failures := w.dispatch(ctx, events)
	w.finishCycle(start, nil, events, failures)
	return nil
}

// dispatch sends events in order; a failed send never stops the rest.
func (w *Watcher) dispatch(ctx context.Context, events []market.Event) int {
	failures := 0
	for i, event := range events {
		if ctx.Err() != nil {
			log.Warn().Int("pending", len(events)-i).Msg("Shutdown during dispatch, dropping remaining events")
			break
		}
		if err := w.notifier.Notify(ctx, event); err != nil {
			failures++
		}
	}
	return failures
}

func (w *Watcher) finishCycle(start time.Time, err error, events []market.Event, failures int) {
	listings := lo.CountBy(events, func(e market.Event) bool { return e.Kind == market.NewListing })
	moves := lo.CountBy(events, func(e market.Event) bool { return e.Kind == market.RapidMove })
	elapsed := time.Since(start)

	w.mu.Lock()
	w.stats.Cycles++
	w.stats.LastCycleAt = start
	w.stats.LastDuration = elapsed
	w.stats.LastNewListings = listings
	w.stats.LastRapidMoves = moves
	w.stats.LastSendFailures = failures
	if err != nil {
		w.stats.FailedCycles++
		w.stats.LastError = err.Error()
	} else {
		w.stats.LastError = ""
	}
	w.mu.Unlock()

	if err == nil {
		log.Info().
			Int("new_listings", listings).
			Int("rapid_moves", moves).
			Int("send_failures", failures).
			Int("tracked", w.seen.Len()).
			Dur("took", elapsed).
			Msg("🔄 Cycle complete")
	}
}

// Stats returns a copy of the loop counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	s := w.stats
	w.mu.RUnlock()
	s.Tracked = w.seen.Len()
	return s
}

// nextTick returns the first slot start+k*interval strictly after now and how
// many slots were passed over.
func nextTick(start time.Time, interval time.Duration, now time.Time) (time.Time, int) {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	k := int(elapsed/interval) + 1
	return start.Add(time.Duration(k) * interval), k - 1
}
