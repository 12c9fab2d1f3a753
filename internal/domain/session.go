package domain

import "time"

// MediaType identifies the kind of content a relayed message carries.
type MediaType string

const (
	MediaText      MediaType = "text"
	MediaPhoto     MediaType = "photo"
	MediaVideo     MediaType = "video"
	MediaDocument  MediaType = "document"
	MediaVoice     MediaType = "voice"
	MediaAudio     MediaType = "audio"
	MediaSticker   MediaType = "sticker"
	MediaVideoNote MediaType = "video_note"
)

// MediaTypes lists every media kind the relay carries. A Gateway
// implementation must map each member to a send call; tests iterate this
// list to catch a new member missing its mapping.
func MediaTypes() []MediaType {
	return []MediaType{
		MediaText, MediaPhoto, MediaVideo, MediaDocument,
		MediaVoice, MediaAudio, MediaSticker, MediaVideoNote,
	}
}

// Direction marks which way a message crossed the correspondent/staff boundary.
type Direction string

const (
	DirectionInbound  Direction = "inbound"  // correspondent -> staff topic
	DirectionOutbound Direction = "outbound" // staff -> correspondent
)

// Session binds a correspondent to their dedicated topic in the support group.
// At most one session exists per correspondent; the store enforces this.
// The topic itself is owned by the messaging surface — TopicID is a cached
// back-reference, and a session whose topic was deleted out-of-band is
// deleted outright so the next inbound message recreates it.
type Session struct {
	CorrespondentID int64     `json:"correspondent_id"`
	TopicID         int64     `json:"topic_id"`
	DisplayName     string    `json:"display_name"`
	Handle          string    `json:"handle"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MessageEvent is one append-only log record per successfully relayed
// message. Analytics only; never updated or deleted.
type MessageEvent struct {
	ID              int64     `json:"id"`
	CorrespondentID int64     `json:"correspondent_id"`
	Media           MediaType `json:"media_type"`
	Direction       Direction `json:"direction"`
	Preview         string    `json:"preview,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
