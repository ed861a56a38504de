package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// TelegramGateway delivers notifications through the Telegram Bot API.
type TelegramGateway struct {
	bot *telego.Bot
}

// NewTelegramGateway creates a gateway for the given bot token.
func NewTelegramGateway(token string) (*TelegramGateway, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramGateway{bot: bot}, nil
}

// Verify interface compliance at compile time.
var _ Gateway = (*TelegramGateway)(nil)

// Send delivers one message. The destination is a numeric chat id.
func (g *TelegramGateway) Send(ctx context.Context, destination, body string) error {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram destination %q: %w", destination, err)
	}

	if _, err := g.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), body)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
