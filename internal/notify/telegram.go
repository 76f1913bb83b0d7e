package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/observability"
)

const defaultSendTimeout = 10 * time.Second

// Telegram sends notifications through the Telegram Bot API. Sends run
// in their own goroutine with a bounded timeout; failures are logged
// and counted, never surfaced to the caller.
type Telegram struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
	log     *zap.Logger
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram creates a Telegram notifier for one chat.
func NewTelegram(token, chatID string, log *zap.Logger) *Telegram {
	return &Telegram{
		apiBase: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: defaultSendTimeout},
		log:     log,
	}
}

// NotifyWalletDiscovered reports a newly discovered wallet.
func (t *Telegram) NotifyWalletDiscovered(ctx context.Context, address string, amountSol float64) {
	text := fmt.Sprintf("🔍 New wallet discovered\n%s\nIncoming transfer: %.4f SOL", address, amountSol)
	t.send(ctx, "wallet_discovered", text)
}

// NotifyTradeDetected reports a freshly mirrored trade.
func (t *Telegram) NotifyTradeDetected(ctx context.Context, trade domain.Trade) {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s detected\nWallet: %s\n", trade.Type, trade.WalletSource)
	if trade.TokenSymbol != "" {
		fmt.Fprintf(&b, "Token: %s (%s)\n", trade.TokenSymbol, trade.TokenMint)
	} else {
		fmt.Fprintf(&b, "Token: %s\n", trade.TokenMint)
	}
	fmt.Fprintf(&b, "Amount: %.4f SOL\nMode: %s\nID: %s", trade.AmountSol, trade.Mode, trade.ID)
	t.send(ctx, "trade_detected", b.String())
}

// NotifyPositionClosed reports a closed trade.
func (t *Telegram) NotifyPositionClosed(ctx context.Context, trade domain.Trade, reason string) {
	text := fmt.Sprintf("🏁 Position closed (%s)\nID: %s\nPnL: %.4f SOL", reason, trade.ID, trade.Pnl)
	if trade.PnlPercent != nil {
		text += fmt.Sprintf(" (%.2f%%)", *trade.PnlPercent)
	}
	t.send(ctx, "position_closed", text)
}

// send fires the request asynchronously. The passed context only
// gates enqueueing; the send itself uses a detached timeout so caller
// cancellation never aborts an in-flight notification.
func (t *Telegram) send(_ context.Context, kind, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
		defer cancel()

		if err := t.sendMessage(ctx, text); err != nil {
			observability.RecordNotifierFailure(kind)
			t.log.Warn("notification delivery failed",
				zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api status %d", resp.StatusCode)
	}
	return nil
}
