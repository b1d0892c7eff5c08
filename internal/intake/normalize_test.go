package intake

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func sampleMessage() *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 100},
		From: &tgbotapi.User{ID: 42, UserName: "student", LanguageCode: "en"},
		Text: "My essay",
	}
}

func TestNormalize_AllShapesResolveIdentically(t *testing.T) {
	shapes := map[string]tgbotapi.Update{
		"message":        {Message: sampleMessage()},
		"edited_message": {EditedMessage: sampleMessage()},
		"callback":       {CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", Message: sampleMessage()}},
	}

	for name, upd := range shapes {
		t.Run(name, func(t *testing.T) {
			in, ok := Normalize(upd)
			if !ok {
				t.Fatalf("expected a chat target")
			}
			if in.ChatID != 100 || in.SenderID != 42 {
				t.Fatalf("unexpected ids: %+v", in)
			}
			if in.SenderUsername != "student" || in.SenderLanguage != "en" {
				t.Fatalf("unexpected sender: %+v", in)
			}
			if in.Text != "My essay" {
				t.Fatalf("unexpected text: %q", in.Text)
			}
		})
	}
}

func TestNormalize_PrecedenceOrder(t *testing.T) {
	edited := sampleMessage()
	edited.Chat.ID = 200
	cbMsg := sampleMessage()
	cbMsg.Chat.ID = 300

	in, ok := Normalize(tgbotapi.Update{
		Message:       sampleMessage(),
		EditedMessage: edited,
		CallbackQuery: &tgbotapi.CallbackQuery{Message: cbMsg},
	})
	if !ok || in.ChatID != 100 {
		t.Fatalf("message should win, got %+v", in)
	}

	in, ok = Normalize(tgbotapi.Update{
		Message:       &tgbotapi.Message{Text: "no chat"},
		EditedMessage: edited,
		CallbackQuery: &tgbotapi.CallbackQuery{Message: cbMsg},
	})
	if !ok || in.ChatID != 200 || in.Text != "My essay" {
		t.Fatalf("edited message should win over chatless message, got %+v", in)
	}

	in, ok = Normalize(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{Message: cbMsg}})
	if !ok || in.ChatID != 300 {
		t.Fatalf("callback message should be used, got %+v", in)
	}
}

func TestNormalize_NoTarget(t *testing.T) {
	cases := []tgbotapi.Update{
		{},
		{Message: &tgbotapi.Message{Text: "orphan"}},
		{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x"}},
	}
	for i, upd := range cases {
		if _, ok := Normalize(upd); ok {
			t.Fatalf("case %d: expected no target", i)
		}
	}
}

func TestNormalize_PicksLargestPhoto(t *testing.T) {
	msg := sampleMessage()
	msg.Text = ""
	msg.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "medium", Width: 320},
		{FileID: "large", Width: 1280},
	}
	in, ok := Normalize(tgbotapi.Update{Message: msg})
	if !ok {
		t.Fatal("expected a chat target")
	}
	if in.PhotoRef != "large" || !in.HasPhoto() {
		t.Fatalf("expected last photo variant, got %q", in.PhotoRef)
	}
	if in.Text != "" {
		t.Fatalf("text should default to empty, got %q", in.Text)
	}
}

func TestNormalize_MissingSender(t *testing.T) {
	in, ok := Normalize(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}}})
	if !ok || in.ChatID != 7 || in.SenderID != 0 || in.SenderUsername != "" {
		t.Fatalf("unexpected intake: %+v", in)
	}
}

func TestDecode(t *testing.T) {
	body := []byte(`{"update_id":1,"edited_message":{"message_id":5,"date":0,"chat":{"id":55,"type":"private"},"from":{"id":9,"is_bot":false,"first_name":"A","username":"ann","language_code":"ru"},"text":"hi"}}`)
	upd := Decode(body)
	in, ok := Normalize(upd)
	if !ok || in.ChatID != 55 || in.SenderID != 9 || in.SenderLanguage != "ru" || in.Text != "hi" {
		t.Fatalf("unexpected intake: %+v ok=%v", in, ok)
	}

	for _, bad := range [][]byte{nil, []byte("not json"), []byte(`{"message":`)} {
		if _, ok := Normalize(Decode(bad)); ok {
			t.Fatalf("malformed body %q should not resolve a target", bad)
		}
	}
}
