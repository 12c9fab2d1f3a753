package channel

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFakeBot returns a client wired to a stub Bot API server. pollDelay is
// how long getUpdates hangs before returning an empty batch.
func newFakeBot(t *testing.T, pollDelay time.Duration) *tgbotapi.BotAPI {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch path.Base(req.URL.Path) {
		case "getMe":
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Test","username":"testbot"}}`)
		case "getUpdates":
			select {
			case <-req.Context().Done():
			case <-time.After(pollDelay):
			}
			io.WriteString(w, `{"ok":true,"result":[]}`)
		case "getChatMember":
			io.WriteString(w, `{"ok":true,"result":{"status":"administrator","user":{"id":2,"is_bot":false,"first_name":"Admin"}}}`)
		case "deleteMessage":
			io.WriteString(w, `{"ok":true,"result":true}`)
		default: // sendMessage, editMessageText
			io.WriteString(w, `{"ok":true,"result":{"message_id":77,"date":1,"chat":{"id":-100,"type":"supergroup"}}}`)
		}
	}))
	t.Cleanup(srv.Close)

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("fake bot: %v", err)
	}
	return bot
}
