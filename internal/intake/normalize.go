// Package intake turns raw Telegram updates into a single canonical intake
// record for the scoring pipeline.
package intake

import (
	"encoding/json"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/band-bot/internal/models"
)

// Decode parses a webhook body. A body that cannot be parsed yields the zero
// update, which later normalizes to "no chat target".
func Decode(body []byte) tgbotapi.Update {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return tgbotapi.Update{}
	}
	return update
}

// Normalize extracts the intake from an update. Messages are considered in
// order: message, edited_message, callback_query.message. The first one that
// carries a chat is used for every field. ok is false when no chat can be
// resolved.
func Normalize(update tgbotapi.Update) (in models.Intake, ok bool) {
	msg := targetMessage(update)
	if msg == nil {
		return models.Intake{}, false
	}

	in.ChatID = msg.Chat.ID
	in.Text = msg.Text
	if msg.From != nil {
		in.SenderID = msg.From.ID
		in.SenderUsername = msg.From.UserName
		in.SenderLanguage = msg.From.LanguageCode
	}
	// Telegram lists photo sizes smallest first.
	if n := len(msg.Photo); n > 0 {
		in.PhotoRef = msg.Photo[n-1].FileID
	}
	return in, true
}

func targetMessage(update tgbotapi.Update) *tgbotapi.Message {
	candidates := []*tgbotapi.Message{update.Message, update.EditedMessage, nil}
	if update.CallbackQuery != nil {
		candidates[2] = update.CallbackQuery.Message
	}
	for _, msg := range candidates {
		if msg != nil && msg.Chat != nil {
			return msg
		}
	}
	return nil
}
