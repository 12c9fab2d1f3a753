package channel

import (
	"strings"

	"supportbot/internal/domain"
)

// Local getUpdates payload structs. The upstream client's typed update
// structs predate forum topics and silently drop message_thread_id, which
// the relay needs for reverse routing, so the listener decodes updates
// itself (see telegram.go).

type update struct {
	UpdateID int      `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	MessageID       int    `json:"message_id"`
	From            *user  `json:"from"`
	Chat            chat   `json:"chat"`
	Date            int64  `json:"date"`
	MessageThreadID int64  `json:"message_thread_id"`
	Text            string `json:"text"`
	Caption         string `json:"caption"`

	Photo     []fileRef    `json:"photo"`
	Video     *fileRef     `json:"video"`
	Document  *documentRef `json:"document"`
	Voice     *fileRef     `json:"voice"`
	Audio     *fileRef     `json:"audio"`
	Sticker   *fileRef     `json:"sticker"`
	VideoNote *fileRef     `json:"video_note"`
}

type user struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	UserName  string `json:"username"`
}

type chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type fileRef struct {
	FileID string `json:"file_id"`
}

type documentRef struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// command returns the bot command a text message starts with ("start",
// "stats", ...), with any @BotName suffix stripped, or "".
func (m *message) command() string {
	if !strings.HasPrefix(m.Text, "/") {
		return ""
	}
	cmd := strings.Fields(m.Text)[0][1:]
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd
}

// classifyMedia determines what kind of content a message carries, along
// with the payload needed to re-send it and a short preview for the event
// log. ok is false for content the relay does not handle (polls, contacts,
// locations, service messages).
func classifyMedia(m *message) (media domain.MediaType, payload domain.OutboundPayload, preview string, ok bool) {
	switch {
	case m.Text != "":
		return domain.MediaText, domain.OutboundPayload{Text: m.Text}, m.Text, true
	case len(m.Photo) > 0:
		// Telegram sends several resolutions; the last is the largest.
		return domain.MediaPhoto, domain.OutboundPayload{FileID: m.Photo[len(m.Photo)-1].FileID, Caption: m.Caption}, m.Caption, true
	case m.Video != nil:
		return domain.MediaVideo, domain.OutboundPayload{FileID: m.Video.FileID, Caption: m.Caption}, m.Caption, true
	case m.Document != nil:
		return domain.MediaDocument, domain.OutboundPayload{FileID: m.Document.FileID, Caption: m.Caption}, m.Document.FileName, true
	case m.Voice != nil:
		return domain.MediaVoice, domain.OutboundPayload{FileID: m.Voice.FileID, Caption: m.Caption}, "", true
	case m.Audio != nil:
		return domain.MediaAudio, domain.OutboundPayload{FileID: m.Audio.FileID, Caption: m.Caption}, "", true
	case m.Sticker != nil:
		return domain.MediaSticker, domain.OutboundPayload{FileID: m.Sticker.FileID}, "", true
	case m.VideoNote != nil:
		return domain.MediaVideoNote, domain.OutboundPayload{FileID: m.VideoNote.FileID}, "", true
	}
	return "", domain.OutboundPayload{}, "", false
}
