// Package alerts pushes blocked-action notifications to a Telegram
// chat so an operator hears about a misbehaving (or compromised)
// manager key immediately, not at the next audit review.
package alerts

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/telemetry"
)

// Bot sends alerts to a single chat. Implements execution.Notifier.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New connects to the Telegram API.
func New(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Bot{api: api, chatID: chatID}, nil
}

// BlockedAction reports one rejected action. Delivery failures are
// logged and swallowed; alerting must never affect the decision path.
func (b *Bot) BlockedAction(sender, target common.Address, reason error) {
	text := fmt.Sprintf(
		"🚫 Action blocked\nsender: %s\ntarget: %s\nreason: %v",
		sender.Hex(), target.Hex(), reason,
	)
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		telemetry.Errorf("[alerts] telegram send failed: %v", err)
	}
}
