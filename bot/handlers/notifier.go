package handlers

import (
	"context"
	"sync/atomic"

	"github.com/Jethrochang07/FlyWJ/bot/workout"
	"github.com/Jethrochang07/FlyWJ/core/logger"
	"github.com/Jethrochang07/FlyWJ/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// TimeoutNotifier delivers inactivity-supervisor messages. It is created
// before the bot exists and bound to the transport once the bot is running;
// notifications arriving before Bind are dropped with a warning.
type TimeoutNotifier struct {
	bot  atomic.Pointer[tele.Bot]
	disp atomic.Pointer[sender.Dispatcher]
}

// NewTimeoutNotifier builds an unbound notifier.
func NewTimeoutNotifier() *TimeoutNotifier {
	return &TimeoutNotifier{}
}

// Bind attaches the running bot and the async sender.
func (n *TimeoutNotifier) Bind(bot *tele.Bot, disp *sender.Dispatcher) {
	n.bot.Store(bot)
	if disp != nil {
		n.disp.Store(disp)
	}
}

// Notify implements workout.Notifier.
func (n *TimeoutNotifier) Notify(chatID int64, replies []workout.Reply) {
	bot := n.bot.Load()
	if bot == nil {
		logger.Warn(logger.Background(), "tg", "notify.drop",
			slog.Int64("chat_id", chatID),
		)
		return
	}

	for _, r := range replies {
		opts := &tele.SendOptions{ReplyMarkup: ReplyMarkup(r)}
		if r.Markdown {
			opts.ParseMode = tele.ModeMarkdown
		}
		text := r.Text
		run := func() error {
			_, err := bot.Send(tele.ChatID(chatID), text, opts)
			return err
		}

		disp := n.disp.Load()
		if disp == nil {
			n.logSendErr(chatID, run())
			continue
		}
		if err := disp.Enqueue(context.Background(), "send.timeout", "sendMessage", run); err != nil {
			// Queue unavailable, deliver synchronously.
			n.logSendErr(chatID, run())
		}
	}
}

func (n *TimeoutNotifier) logSendErr(chatID int64, err error) {
	if err == nil {
		return
	}
	logger.Warn(logger.Background(), "tg", "notify.fail",
		slog.Int64("chat_id", chatID),
		slog.String("err", err.Error()),
	)
}
