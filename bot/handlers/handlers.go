// Package handlers binds the workout engine to the Telegram transport:
// commands, callback buttons, and free-form text all funnel into the engine
// and its replies go back out through the async sender.
package handlers

import (
	"fmt"

	"github.com/Jethrochang07/FlyWJ/bot/workout"
	"github.com/Jethrochang07/FlyWJ/core/logger"
	tg "github.com/Jethrochang07/FlyWJ/core/telegram"
	"github.com/Jethrochang07/FlyWJ/core/telegram/callbacks"
	"github.com/Jethrochang07/FlyWJ/core/telegram/commands"
	tghelpers "github.com/Jethrochang07/FlyWJ/core/telegram/helpers"
	"github.com/Jethrochang07/FlyWJ/core/telegram/keyboard"
	"github.com/Jethrochang07/FlyWJ/core/telegram/router"

	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// Register wires every command and button payload into the registry.
func Register(reg *tg.Registry, eng *workout.Engine) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     commandHandler(eng, "start"),
		Description: "Greeting and usage hint",
	})
	reg.RegisterCommand("/log", commands.Command{
		Handler:     commandHandler(eng, "log"),
		Description: "Log an activity",
	})
	reg.RegisterCommand("/summary", commands.Command{
		Handler:     commandHandler(eng, "summary"),
		Description: "Preview logged activities",
	})
	reg.RegisterCommand("/end", commands.Command{
		Handler:     commandHandler(eng, "end"),
		Description: "End the current workout",
	})
	reg.RegisterCommand("/sessions", commands.Command{
		Handler:     sessionsHandler(eng),
		Description: "Live session diagnostics",
		AdminOnly:   true,
		Hidden:      true,
	})

	for _, payload := range workout.Payloads() {
		p := payload
		_ = reg.RegisterCallback(p, func(c tele.Context) error {
			return sendReplies(c, eng.HandleButton(c.Sender().ID, c.Chat().ID, p))
		})
	}

	reg.SetCallbackNotFound(func(c tele.Context) error {
		// Stale buttons from old messages land here.
		logger.Debug(logger.Background(), "tg", "callback.unknown",
			slog.String("cb_key", callbacks.CallbackKey(c)),
		)
		return tghelpers.SendText(c, "Unknown option. Please type /log again.")
	})
}

// Conversation adapts the engine for the text router.
func Conversation(eng *workout.Engine) router.Conversation {
	return conversation{eng: eng}
}

type conversation struct{ eng *workout.Engine }

func (cv conversation) InProgress(userID int64) bool {
	return cv.eng.InProgress(userID)
}

func (cv conversation) TextHandler(c tele.Context) error {
	return sendReplies(c, cv.eng.HandleText(c.Sender().ID, c.Chat().ID, c.Text()))
}

func commandHandler(eng *workout.Engine, name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return sendReplies(c, eng.HandleCommand(c.Sender().ID, c.Chat().ID, name))
	}
}

func sessionsHandler(eng *workout.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		text := fmt.Sprintf("Sessions: %d\nActive flows: %d\nUsers with quick logs: %d",
			eng.Sessions().Len(), eng.ActiveFlows(), eng.QuickLogs().Len())
		return tghelpers.SendText(c, text)
	}
}

// sendReplies delivers the engine's replies in order. On a button tap the
// first reply replaces the message that carried the keyboard instead of
// stacking a new one; everything else goes out through the async sender
// helpers.
func sendReplies(c tele.Context, replies []workout.Reply) error {
	for i, r := range replies {
		markup := ReplyMarkup(r)
		var err error
		switch {
		case i == 0 && c.Callback() != nil:
			if r.Markdown {
				err = tghelpers.EditOrSendMD(c, r.Text, markup)
			} else {
				err = c.EditOrSend(r.Text, &tele.SendOptions{ReplyMarkup: markup})
			}
		case r.Markdown:
			err = tghelpers.SendMD(c, r.Text, markup)
		default:
			err = tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: markup})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReplyMarkup builds the inline keyboard for a reply, nil when it carries no
// choices.
func ReplyMarkup(r workout.Reply) *tele.ReplyMarkup {
	if len(r.Choices) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, len(r.Choices))
	for i, ch := range r.Choices {
		btns[i] = keyboard.InlineBtn{Text: ch.Label, Unique: ch.Payload}
	}
	return keyboard.InlineButtonsNPerRow(btns, r.PerRow)
}
