package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"supportbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram implements domain.Gateway on top of the Bot API. Topics map to
// forum threads in the staff supergroup; correspondents are private chats.
//
// The upstream client predates forum-topic support, so topic-scoped calls
// (createForumTopic, forwards and posts carrying message_thread_id) go
// through MakeRequest with explicit params. Plain sends to correspondents
// use the typed helpers.
type Telegram struct {
	bot     *tgbotapi.BotAPI
	groupID int64
	logger  *slog.Logger
}

func NewTelegram(bot *tgbotapi.BotAPI, groupID int64, logger *slog.Logger) *Telegram {
	return &Telegram{bot: bot, groupID: groupID, logger: logger}
}

func (t *Telegram) CreateTopic(ctx context.Context, title string) (int64, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", t.groupID)
	params.AddNonEmpty("name", title)

	resp, err := t.bot.MakeRequest("createForumTopic", params)
	if err != nil {
		return 0, fmt.Errorf("createForumTopic: %w", err)
	}

	var topic struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return 0, fmt.Errorf("decode createForumTopic result: %w", err)
	}
	if topic.MessageThreadID == 0 {
		return 0, fmt.Errorf("createForumTopic returned no thread ID")
	}
	return topic.MessageThreadID, nil
}

func (t *Telegram) Forward(ctx context.Context, topicID int64, ref domain.ForwardRef) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", t.groupID)
	params.AddNonZero64("from_chat_id", ref.FromChatID)
	params.AddNonZero("message_id", ref.MessageID)
	params.AddNonZero64("message_thread_id", topicID)

	if _, err := t.bot.MakeRequest("forwardMessage", params); err != nil {
		if isThreadMissing(err) {
			return fmt.Errorf("forward into topic %d: %w", topicID, domain.ErrTopicMissing)
		}
		return fmt.Errorf("forwardMessage: %w", err)
	}
	return nil
}

func (t *Telegram) Post(ctx context.Context, topicID int64, text string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", t.groupID)
	params.AddNonZero64("message_thread_id", topicID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	params.AddBool("disable_notification", true)

	if _, err := t.bot.MakeRequest("sendMessage", params); err != nil {
		if isThreadMissing(err) {
			return fmt.Errorf("post into topic %d: %w", topicID, domain.ErrTopicMissing)
		}
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

func (t *Telegram) Send(ctx context.Context, correspondentID int64, media domain.MediaType, payload domain.OutboundPayload) error {
	msg, err := buildSend(correspondentID, media, payload)
	if err != nil {
		return err
	}
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", media, err)
	}
	return nil
}

// buildSend maps a media type to its API call. Must cover every member of
// domain.MediaTypes.
func buildSend(chatID int64, media domain.MediaType, payload domain.OutboundPayload) (tgbotapi.Chattable, error) {
	var msg tgbotapi.Chattable

	switch media {
	case domain.MediaText:
		msg = tgbotapi.NewMessage(chatID, payload.Text)
	case domain.MediaPhoto:
		cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(payload.FileID))
		cfg.Caption = payload.Caption
		msg = cfg
	case domain.MediaVideo:
		cfg := tgbotapi.NewVideo(chatID, tgbotapi.FileID(payload.FileID))
		cfg.Caption = payload.Caption
		msg = cfg
	case domain.MediaDocument:
		cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileID(payload.FileID))
		cfg.Caption = payload.Caption
		msg = cfg
	case domain.MediaVoice:
		cfg := tgbotapi.NewVoice(chatID, tgbotapi.FileID(payload.FileID))
		cfg.Caption = payload.Caption
		msg = cfg
	case domain.MediaAudio:
		cfg := tgbotapi.NewAudio(chatID, tgbotapi.FileID(payload.FileID))
		cfg.Caption = payload.Caption
		msg = cfg
	case domain.MediaSticker:
		msg = tgbotapi.NewSticker(chatID, tgbotapi.FileID(payload.FileID))
	case domain.MediaVideoNote:
		msg = tgbotapi.NewVideoNote(chatID, 0, tgbotapi.FileID(payload.FileID))
	default:
		return nil, fmt.Errorf("unsupported media type: %s", media)
	}

	return msg, nil
}

// isThreadMissing matches the Bot API wording for a deleted forum topic
// ("Bad Request: message thread not found").
func isThreadMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "thread not found")
}
