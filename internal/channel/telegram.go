package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"supportbot/internal/bus"
	"supportbot/internal/config"
	"supportbot/internal/domain"
	"supportbot/internal/relay"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeoutSeconds = 30

// Relay is the Telegram update listener for the support bot. It turns
// private-chat messages into inbound relay events, topic messages from
// staff into outbound relay events, and answers the handful of commands
// (/start, /help, /stats, /userinfo) directly.
type Relay struct {
	bot      *tgbotapi.BotAPI
	groupID  int64
	bus      *bus.Bus
	registry *relay.Registry
	stats    *relay.Stats
	replies  config.Replies
	autoAck  bool
	logger   *slog.Logger
}

type RelayConfig struct {
	Bot      *tgbotapi.BotAPI
	GroupID  int64
	Bus      *bus.Bus
	Registry *relay.Registry
	Stats    *relay.Stats
	Replies  config.Replies
	AutoAck  bool
	Logger   *slog.Logger
}

func NewRelay(cfg RelayConfig) *Relay {
	return &Relay{
		bot:      cfg.Bot,
		groupID:  cfg.GroupID,
		bus:      cfg.Bus,
		registry: cfg.Registry,
		stats:    cfg.Stats,
		replies:  cfg.Replies,
		autoAck:  cfg.AutoAck,
		logger:   cfg.Logger,
	}
}

// Start polls for updates until the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("relay listener started",
		"bot", r.bot.Self.UserName,
		"group_id", r.groupID,
	)

	offset := 0
	for {
		// The long poll itself is not cancellable, so it runs detached and
		// the loop abandons it on shutdown instead of waiting it out.
		results := make(chan pollResult, 1)
		go func(off int) {
			updates, err := r.poll(off)
			results <- pollResult{updates, err}
		}(offset)

		var res pollResult
		select {
		case <-ctx.Done():
			r.logger.Info("relay listener stopping")
			return nil
		case res = <-results:
		}

		if res.err != nil {
			r.logger.Error("getUpdates failed, backing off", "err", res.err)
			select {
			case <-ctx.Done():
				r.logger.Info("relay listener stopping")
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for i := range res.updates {
			r.handleUpdate(ctx, &res.updates[i])
			offset = res.updates[i].UpdateID + 1
		}
	}
}

type pollResult struct {
	updates []update
	err     error
}

// poll long-polls getUpdates directly so message_thread_id survives decoding
// (the typed client drops it, see updates.go).
func (r *Relay) poll(offset int) ([]update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", pollTimeoutSeconds)
	params.AddNonEmpty("allowed_updates", `["message"]`)

	resp, err := r.bot.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (r *Relay) handleUpdate(ctx context.Context, u *update) {
	m := u.Message
	if m == nil {
		return
	}

	switch {
	case m.Chat.Type == "private":
		r.handlePrivate(m)
	case m.Chat.ID == r.groupID:
		r.handleGroup(ctx, m)
	}
}

// handlePrivate processes a correspondent message: commands are answered
// in place, everything else becomes an inbound relay event.
func (r *Relay) handlePrivate(m *message) {
	if m.From == nil || m.From.IsBot {
		return
	}

	switch m.command() {
	case "start":
		r.sendHTML(m.Chat.ID, r.replies.Welcome)
		return
	case "help":
		r.sendHTML(m.Chat.ID, r.replies.Help)
		return
	}
	if m.command() != "" {
		return // unknown command, ignore
	}

	media, _, preview, ok := classifyMedia(m)
	if !ok {
		r.logger.Debug("unhandled private content, ignoring",
			"correspondent_id", m.From.ID, "message_id", m.MessageID,
		)
		return
	}

	displayName := m.From.FirstName
	if displayName == "" {
		displayName = "User"
	}

	r.bus.Publish(domain.RelayEvent{Inbound: &domain.InboundEvent{
		CorrespondentID: m.From.ID,
		DisplayName:     displayName,
		Handle:          m.From.UserName,
		Media:           media,
		Ref:             domain.ForwardRef{FromChatID: m.Chat.ID, MessageID: m.MessageID},
		Preview:         preview,
		Timestamp:       time.Unix(m.Date, 0),
	}})
}

// handleGroup processes staff traffic inside the support group: commands
// first, then replies written inside a topic.
func (r *Relay) handleGroup(ctx context.Context, m *message) {
	switch m.command() {
	case "stats":
		r.handleStats(ctx, m)
		return
	case "userinfo":
		r.handleUserInfo(ctx, m)
		return
	}
	if m.command() != "" {
		return
	}

	if m.MessageThreadID == 0 {
		return // general group chatter, not inside a topic
	}
	if m.From == nil {
		return
	}
	// Admins posting anonymously are attributed to GroupAnonymousBot and
	// still count as staff; every other bot (topic-managing helpers etc.)
	// is dropped.
	if m.From.IsBot && m.From.UserName != "GroupAnonymousBot" {
		return
	}

	media, payload, preview, ok := classifyMedia(m)
	if !ok {
		return
	}

	r.bus.Publish(domain.RelayEvent{Outbound: &domain.OutboundEvent{
		TopicID:   m.MessageThreadID,
		Media:     media,
		Payload:   payload,
		Preview:   preview,
		Timestamp: time.Unix(m.Date, 0),
	}})
}

func (r *Relay) handleStats(ctx context.Context, m *message) {
	totals, err := r.stats.Totals(ctx)
	if err != nil {
		r.logger.Error("stats query failed", "err", err)
		r.postTopic(m.MessageThreadID, "❌ Error fetching statistics")
		return
	}

	autoAck := "Disabled"
	if r.autoAck {
		autoAck = "Enabled"
	}
	r.postTopic(m.MessageThreadID, fmt.Sprintf(
		"📊 <b>Bot Statistics</b>\n\n"+
			"👥 Total Users: %d\n"+
			"💬 Total Messages: %d\n"+
			"📁 Database: SQLite\n"+
			"✅ Status: Active\n"+
			"🤖 Auto-Reply: %s",
		totals.Sessions, totals.Events, autoAck,
	))
}

func (r *Relay) handleUserInfo(ctx context.Context, m *message) {
	if m.MessageThreadID == 0 {
		r.postTopic(0, "Use this command inside a user's topic.")
		return
	}

	sess, err := r.registry.ReverseLookup(ctx, m.MessageThreadID)
	if err != nil {
		r.postTopic(m.MessageThreadID, "❌ User not found for this topic.")
		return
	}

	cs, err := r.stats.Correspondent(ctx, sess.CorrespondentID)
	if err != nil {
		r.logger.Error("userinfo query failed", "correspondent_id", sess.CorrespondentID, "err", err)
		r.postTopic(m.MessageThreadID, "❌ Error fetching user information")
		return
	}

	handle := sess.Handle
	if handle == "" {
		handle = "N/A"
	}
	r.postTopic(m.MessageThreadID, fmt.Sprintf(
		"📊 <b>User Information</b>\n\n"+
			"👤 Name: %s\n"+
			"📱 Username: @%s\n"+
			"🆔 User ID: <code>%d</code>\n\n"+
			"📈 <b>Message Statistics:</b>\n"+
			"  ↗️ From User: %d\n"+
			"  ↙️ To User: %d\n"+
			"  📊 Total: %d\n\n"+
			"🕐 First Contact: %s\n"+
			"🕐 Last Activity: %s",
		sess.DisplayName, handle, sess.CorrespondentID,
		cs.Inbound, cs.Outbound, cs.Total,
		sess.CreatedAt.Format("2006-01-02 15:04:05"),
		sess.UpdatedAt.Format("2006-01-02 15:04:05"),
	))
}

// sendHTML sends an HTML-formatted message to a private chat.
func (r *Relay) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.bot.Send(msg); err != nil {
		r.logger.Error("send failed", "chat_id", chatID, "err", err)
	}
}

// postTopic posts into the support group, inside the given topic when
// topicID is non-zero.
func (r *Relay) postTopic(topicID int64, text string) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", r.groupID)
	params.AddNonZero64("message_thread_id", topicID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)

	if _, err := r.bot.MakeRequest("sendMessage", params); err != nil {
		r.logger.Error("group post failed", "topic_id", topicID, "err", err)
	}
}
