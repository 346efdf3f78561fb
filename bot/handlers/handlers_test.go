package handlers

import (
	"testing"

	"github.com/Jethrochang07/FlyWJ/bot/workout"
)

func TestReplyMarkup(t *testing.T) {
	if got := ReplyMarkup(workout.Reply{Text: "plain"}); got != nil {
		t.Fatalf("reply without choices should have no markup, got %+v", got)
	}

	r := workout.Reply{
		Choices: []workout.Choice{
			{Label: "➕ Continue logging", Payload: workout.PayloadContinue},
			{Label: "✅ End workout", Payload: workout.PayloadEnd},
		},
		PerRow: 2,
	}
	markup := ReplyMarkup(r)
	if markup == nil {
		t.Fatalf("expected markup")
	}
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("keyboard layout = %+v, want one row of two", markup.InlineKeyboard)
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Text != "➕ Continue logging" {
		t.Fatalf("button text = %q", btn.Text)
	}
}

func TestReplyMarkupOnePerRow(t *testing.T) {
	r := workout.Reply{
		Choices: []workout.Choice{
			{Label: "Chest", Payload: workout.PayloadBodyChest},
			{Label: "Back", Payload: workout.PayloadBodyBack},
			{Label: "Legs", Payload: workout.PayloadBodyLegs},
		},
		PerRow: 1,
	}
	markup := ReplyMarkup(r)
	if len(markup.InlineKeyboard) != 3 {
		t.Fatalf("rows = %d, want 3", len(markup.InlineKeyboard))
	}
	for i, row := range markup.InlineKeyboard {
		if len(row) != 1 {
			t.Fatalf("row %d has %d buttons, want 1", i, len(row))
		}
	}
}

func TestConversationInProgress(t *testing.T) {
	eng := workout.NewEngine(workout.Options{})
	cv := Conversation(eng)

	if cv.InProgress(1) {
		t.Fatalf("fresh engine should have no flow in progress")
	}
	eng.HandleButton(1, 1, workout.PayloadRun)
	if !cv.InProgress(1) {
		t.Fatalf("pending activity should count as in progress")
	}
}
