// Package notifier renders market events and delivers them to the chat,
// honouring the mute switch.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/coinwatch/internal/database"
	"github.com/web3guy0/coinwatch/internal/market"
	"github.com/web3guy0/coinwatch/internal/mute"
)

// Sender is the chat transport primitive.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Journal stores delivery outcomes. Optional.
type Journal interface {
	SaveAlert(ctx context.Context, alert *database.Alert) error
}

// Notifier delivers one event at a time.
type Notifier struct {
	sender  Sender
	chatID  int64
	mute    *mute.Controller
	journal Journal
	render  Renderer

	mu sync.Mutex
}

// Option configures Notifier.
type Option func(*Notifier)

// WithJournal records every outcome to j.
func WithJournal(j Journal) Option {
	return func(n *Notifier) {
		n.journal = j
	}
}

// WithRenderer replaces the default renderer.
func WithRenderer(r Renderer) Option {
	return func(n *Notifier) {
		n.render = r
	}
}

// New creates a notifier that sends to chatID.
func New(sender Sender, chatID int64, m *mute.Controller, opts ...Option) *Notifier {
	n := &Notifier{
		sender: sender,
		chatID: chatID,
		mute:   m,
		render: NewRenderer("CoinGecko", "usd"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends event unless muted. A muted call succeeds without sending.
// Delivery errors are logged and returned as *SendError; callers are
// expected to carry on with their next event.
func (n *Notifier) Notify(ctx context.Context, event market.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	logger := log.With().
		Str("kind", string(event.Kind)).
		Str("coin", event.Coin.ID).
		Logger()

	if n.mute.IsMuted() {
		logger.Info().Msg("🔕 Alerts muted, not sending")
		n.record(ctx, event, database.AlertMuted, nil)
		return nil
	}

	text := n.render.Render(event)
	if err := n.sender.SendMessage(ctx, n.chatID, text); err != nil {
		sendErr := classifySendErr(err)
		logger.Error().Err(sendErr).Str("reason", string(sendErr.Kind)).Msg("Failed to send alert")
		n.record(ctx, event, database.AlertFailed, sendErr)
		return sendErr
	}

	logger.Info().Str("symbol", event.Coin.Ticker()).Msg("📨 Alert sent")
	n.record(ctx, event, database.AlertSent, nil)
	return nil
}

func (n *Notifier) record(ctx context.Context, event market.Event, status string, sendErr error) {
	if n.journal == nil {
		return
	}

	alert := &database.Alert{
		EntityID: event.Coin.ID,
		Symbol:   event.Coin.Ticker(),
		Name:     event.Coin.Name,
		Kind:     string(event.Kind),
		Window:   string(event.Window),
		ChatID:   n.chatID,
		Status:   status,
	}
	if event.Kind == market.RapidMove {
		alert.ChangePct = event.ChangePct
	}
	if event.Coin.CurrentPrice.Valid {
		alert.Price = event.Coin.CurrentPrice.Decimal
	}
	if sendErr != nil {
		alert.Error = sendErr.Error()
	}

	// Journal writes outlive a shutdown-cancelled cycle
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.journal.SaveAlert(jctx, alert); err != nil {
		log.Warn().Err(err).Str("coin", event.Coin.ID).Msg("Failed to journal alert")
	}
}

func classifySendErr(err error) *SendError {
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &SendError{Kind: KindRejected, Err: err}
	}
	return &SendError{Kind: KindTransport, Err: err}
}

// ErrorKind classifies a failed delivery.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindRejected  ErrorKind = "rejected"
)

// SendError wraps a failed delivery.
type SendError struct {
	Kind ErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
