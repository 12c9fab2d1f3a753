package channel

import (
	"encoding/json"
	"testing"

	"supportbot/internal/domain"
)

func TestCommandParsing(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"/start", "start"},
		{"/help@SupportBot", "help"},
		{"/stats extra args", "stats"},
		{"hello", ""},
		{"", ""},
		{"not /a command", ""},
	}
	for _, c := range cases {
		m := &message{Text: c.text}
		if got := m.command(); got != c.want {
			t.Errorf("command(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestClassifyMedia(t *testing.T) {
	cases := []struct {
		name    string
		msg     message
		media   domain.MediaType
		fileID  string
		preview string
		ok      bool
	}{
		{
			name:    "text",
			msg:     message{Text: "hello there"},
			media:   domain.MediaText,
			preview: "hello there",
			ok:      true,
		},
		{
			name: "photo picks largest resolution",
			msg: message{
				Photo:   []fileRef{{FileID: "small"}, {FileID: "large"}},
				Caption: "a cat",
			},
			media:   domain.MediaPhoto,
			fileID:  "large",
			preview: "a cat",
			ok:      true,
		},
		{
			name:    "document previews filename",
			msg:     message{Document: &documentRef{FileID: "doc1", FileName: "invoice.pdf"}},
			media:   domain.MediaDocument,
			fileID:  "doc1",
			preview: "invoice.pdf",
			ok:      true,
		},
		{
			name:    "video with caption preview",
			msg:     message{Video: &fileRef{FileID: "vid1"}, Caption: "clip"},
			media:   domain.MediaVideo,
			fileID:  "vid1",
			preview: "clip",
			ok:      true,
		},
		{
			name:   "voice",
			msg:    message{Voice: &fileRef{FileID: "v1"}},
			media:  domain.MediaVoice,
			fileID: "v1",
			ok:     true,
		},
		{
			name:   "audio",
			msg:    message{Audio: &fileRef{FileID: "a1"}},
			media:  domain.MediaAudio,
			fileID: "a1",
			ok:     true,
		},
		{
			name:   "video note",
			msg:    message{VideoNote: &fileRef{FileID: "vn1"}},
			media:  domain.MediaVideoNote,
			fileID: "vn1",
			ok:     true,
		},
		{
			name:   "sticker",
			msg:    message{Sticker: &fileRef{FileID: "s1"}},
			media:  domain.MediaSticker,
			fileID: "s1",
			ok:     true,
		},
		{
			name: "unhandled content",
			msg:  message{},
			ok:   false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			media, payload, preview, ok := classifyMedia(&c.msg)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if !ok {
				return
			}
			if media != c.media {
				t.Errorf("media = %q, want %q", media, c.media)
			}
			if payload.FileID != c.fileID {
				t.Errorf("file id = %q, want %q", payload.FileID, c.fileID)
			}
			if preview != c.preview {
				t.Errorf("preview = %q, want %q", preview, c.preview)
			}
		})
	}
}

func TestUpdateDecodeKeepsThreadID(t *testing.T) {
	raw := `[{"update_id":7,"message":{"message_id":42,"date":1700000000,
		"message_thread_id":913,
		"from":{"id":100,"first_name":"Ada","username":"ada"},
		"chat":{"id":-1009,"type":"supergroup"},
		"text":"reply to user"}}]`

	var updates []update
	if err := json.Unmarshal([]byte(raw), &updates); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	m := updates[0].Message
	if m.MessageThreadID != 913 {
		t.Errorf("thread id = %d, want 913", m.MessageThreadID)
	}
	if m.From.UserName != "ada" {
		t.Errorf("username = %q, want ada", m.From.UserName)
	}
	if m.Chat.Type != "supergroup" {
		t.Errorf("chat type = %q", m.Chat.Type)
	}
}
