// Package bot provides the Telegram transport and the operator commands.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/web3guy0/coinwatch/internal/database"
	"github.com/web3guy0/coinwatch/internal/market"
	"github.com/web3guy0/coinwatch/internal/mute"
	"github.com/web3guy0/coinwatch/internal/watcher"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM BOT - alert delivery & operator commands
// ═══════════════════════════════════════════════════════════════════════════════
//
// Commands:
//   /start, /help   — usage
//   /mute, /unmute  — toggle alert delivery
//   /status         — watcher progress
//   /recent         — last alerts from the journal
//   /ping           — liveness
//
// Commands are accepted from any chat and answered in that chat. Alerts go
// to the configured chat only.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	pollTimeoutSeconds = 30
	recentLimit        = 10
)

// StatusProvider reports poll loop progress
type StatusProvider interface {
	Stats() watcher.Stats
}

// AlertHistory reads the alert journal
type AlertHistory interface {
	RecentAlerts(ctx context.Context, limit int) ([]database.Alert, error)
	CountAlertsByStatus(ctx context.Context) (map[string]int64, error)
}

// TelegramBot manages the Telegram interface
type TelegramBot struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	mute      *mute.Controller
	status    StatusProvider
	history   AlertHistory
	startedAt time.Time
}

// NewTelegramBot logs in with token. Alerts are sent to chatID.
func NewTelegramBot(token string, chatID int64, m *mute.Controller) (*TelegramBot, error) {
	// Client timeout must outlast the long-poll window
	httpClient := &http.Client{Timeout: (pollTimeoutSeconds + 15) * time.Second}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot initialized")

	return &TelegramBot{
		api:       api,
		chatID:    chatID,
		mute:      m,
		startedAt: time.Now(),
	}, nil
}

// SetStatusProvider wires /status to the watcher
func (b *TelegramBot) SetStatusProvider(p StatusProvider) {
	b.status = p
}

// SetAlertHistory wires /recent and journal totals
func (b *TelegramBot) SetAlertHistory(h AlertHistory) {
	b.history = h
}

// SendMessage delivers text to chatID. It returns early with ctx's error if
// ctx ends first; the underlying request is bounded by the client timeout.
func (b *TelegramBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyStartup tells the alert chat the watcher is up
func (b *TelegramBot) NotifyStartup(ctx context.Context, interval time.Duration) {
	text := fmt.Sprintf("🚀 Coin watcher started\n\n⏱️ Checking every %s\nUse /help for commands", interval)
	if err := b.SendMessage(ctx, b.chatID, text); err != nil {
		log.Warn().Err(err).Msg("Failed to send startup message")
	}
}

// Run listens for commands until ctx is done
func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)
	log.Info().Msg("📱 Telegram command loop started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Info().Msg("Telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *TelegramBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd := strings.ToLower(msg.Command())

	log.Debug().
		Int64("chat_id", msg.Chat.ID).
		Str("command", cmd).
		Msg("Received command")

	reply := b.handleCommand(ctx, cmd)
	if err := b.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("Failed to send Telegram reply")
	}
}

func (b *TelegramBot) handleCommand(ctx context.Context, cmd string) string {
	switch cmd {
	case "start":
		return "🤖 Coin watcher is running!\n\n" + helpText
	case "help":
		return helpText
	case "mute":
		b.mute.SetMuted(true)
		log.Info().Msg("🔕 Alerts muted via Telegram")
		return "🔕 Alerts muted. Use /unmute to turn them back on."
	case "unmute":
		b.mute.SetMuted(false)
		log.Info().Msg("🔔 Alerts unmuted via Telegram")
		return "🔔 Alerts enabled."
	case "status":
		return b.cmdStatus(ctx)
	case "recent":
		return b.cmdRecent(ctx)
	case "ping":
		return "🏓 Pong!"
	default:
		return "❓ Unknown command. Use /help"
	}
}

const helpText = `📖 Commands
━━━━━━━━━━━━━━━━━━━━

🔕 /mute — pause alerts
🔔 /unmute — resume alerts
📊 /status — watcher status
📜 /recent — last alerts
🏓 /ping — test connection`

func (b *TelegramBot) cmdStatus(ctx context.Context) string {
	alerts := "🔔 Alerts: ON"
	if b.mute.IsMuted() {
		alerts = "🔕 Alerts: MUTED"
	}

	var sb strings.Builder
	sb.WriteString("📊 WATCHER STATUS\n━━━━━━━━━━━━━━━━━━━━\n\n")
	sb.WriteString(alerts + "\n")
	fmt.Fprintf(&sb, "⏱️ Uptime: %s\n", time.Since(b.startedAt).Round(time.Second))

	if b.status != nil {
		st := b.status.Stats()
		fmt.Fprintf(&sb, "🔄 Cycles: %d (%d failed)\n", st.Cycles, st.FailedCycles)
		fmt.Fprintf(&sb, "👀 Tracked coins: %d\n", st.Tracked)
		if !st.LastCycleAt.IsZero() {
			fmt.Fprintf(&sb, "🕐 Last cycle: %s ago (%s)\n",
				time.Since(st.LastCycleAt).Round(time.Second), st.LastDuration.Round(time.Millisecond))
			fmt.Fprintf(&sb, "🚨 Last cycle alerts: %d new, %d moves\n", st.LastNewListings, st.LastRapidMoves)
		}
		if st.LastError != "" {
			fmt.Fprintf(&sb, "⚠️ Last error: %s\n", st.LastError)
		}
	}

	if b.history != nil {
		counts, err := b.history.CountAlertsByStatus(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read alert totals")
		} else {
			fmt.Fprintf(&sb, "📨 Journal: %d sent, %d muted, %d failed\n",
				counts[database.AlertSent], counts[database.AlertMuted], counts[database.AlertFailed])
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (b *TelegramBot) cmdRecent(ctx context.Context) string {
	if b.history == nil {
		return "❌ Alert history not available"
	}

	alerts, err := b.history.RecentAlerts(ctx, recentLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read recent alerts")
		return "❌ Failed to fetch recent alerts"
	}
	if len(alerts) == 0 {
		return "📭 No alerts yet"
	}

	lines := lo.Map(alerts, func(a database.Alert, _ int) string {
		emoji := "🚨"
		detail := "new listing"
		if a.Kind == string(market.RapidMove) {
			emoji = "⚡"
			detail = fmt.Sprintf("%s %s%%", a.Window, a.ChangePct.StringFixed(2))
		}
		return fmt.Sprintf("%s %s — %s [%s]\n   %s",
			emoji, a.Symbol, detail, a.Status, a.CreatedAt.Format("Jan 2 15:04"))
	})

	return fmt.Sprintf("📜 LAST %d ALERTS\n━━━━━━━━━━━━━━━━━━━━\n\n%s", len(alerts), strings.Join(lines, "\n\n"))
}
