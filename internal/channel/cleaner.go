package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"supportbot/internal/purge"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Cleaner is the bulk-deletion bot listener. It runs as a separate bot
// identity so it can be added to any group or channel and wipe message
// ranges with /del, independent of the relay.
type Cleaner struct {
	bot      *tgbotapi.BotAPI
	purger   *purge.Purger
	maxRange int
	logger   *slog.Logger
}

func NewCleaner(bot *tgbotapi.BotAPI, purger *purge.Purger, maxRange int, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		bot:      bot,
		purger:   purger,
		maxRange: maxRange,
		logger:   logger,
	}
}

// BotDeleter adapts the Telegram client to the purge engine.
type BotDeleter struct {
	Bot *tgbotapi.BotAPI
}

func (d BotDeleter) DeleteMessage(chatID int64, messageID int) error {
	_, err := d.Bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

const cleanerHelp = `🧹 <b>Cleaner Bot</b>

Delete a range of messages from this chat:

<code>/del &lt;start_id&gt; &lt;end_id&gt;</code>

• Message IDs are shown when you forward a message to @userinfobot, or use your client's "Copy Message Link".
• Both IDs are inclusive.
• <code>/stop</code> cancels a running deletion.

⚠️ I need the <b>Delete Messages</b> admin right here.`

// Start consumes updates until the context is cancelled. The cleaner
// never needs message_thread_id, so the typed update channel is fine.
func (c *Cleaner) Start(ctx context.Context) error {
	c.logger.Info("cleaner listener started", "bot", c.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := c.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("cleaner listener stopping")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			// Channels deliver posts, groups deliver messages.
			msg := upd.Message
			if msg == nil {
				msg = upd.ChannelPost
			}
			if msg == nil {
				continue
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Cleaner) handle(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		c.reply(msg.Chat.ID, cleanerHelp)
	case "del":
		// Runs detached: a deletion can take minutes and /stop must stay
		// readable while it does. The purger rejects a second /del per chat.
		go c.handleDelete(ctx, msg)
	case "stop":
		c.handleStop(msg)
	}
}

func (c *Cleaner) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		c.reply(msg.Chat.ID, "❌ /del only works in groups and channels.")
		return
	}
	if !c.isAdmin(msg) {
		c.reply(msg.Chat.ID, "❌ Only admins can use /del.")
		return
	}

	startID, endID, err := parseDeleteRange(msg.CommandArguments(), c.maxRange)
	if err != nil {
		c.reply(msg.Chat.ID, fmt.Sprintf("❌ %s\n\nUsage: <code>/del &lt;start_id&gt; &lt;end_id&gt;</code>", err))
		return
	}

	status, sendErr := c.bot.Send(c.htmlMessage(msg.Chat.ID,
		fmt.Sprintf("🧹 Deleting messages %d–%d…", startID, endID)))
	progress := func(deleted, total int) {
		if sendErr != nil {
			return
		}
		edit := tgbotapi.NewEditMessageText(msg.Chat.ID, status.MessageID,
			fmt.Sprintf("🧹 Deleting… %d/%d", deleted, total))
		c.bot.Send(edit)
	}

	res, runErr := c.purger.Run(ctx, msg.Chat.ID, startID, endID, progress)
	switch {
	case runErr == purge.ErrBusy:
		c.reply(msg.Chat.ID, "⏳ A deletion is already running here. Use /stop to cancel it.")
		return
	case runErr == purge.ErrStopped:
		c.reply(msg.Chat.ID, fmt.Sprintf("🛑 Stopped. Deleted %d messages.", res.Deleted))
	case runErr != nil:
		c.logger.Error("purge failed", "chat_id", msg.Chat.ID, "err", runErr)
		c.reply(msg.Chat.ID, "❌ Deletion failed.")
		return
	default:
		c.reply(msg.Chat.ID, fmt.Sprintf(
			"✅ Done. Deleted %d of %d messages (%d skipped).",
			res.Deleted, res.Requested, res.Failed))
	}

	if sendErr == nil {
		c.bot.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, status.MessageID))
	}
}

func (c *Cleaner) handleStop(msg *tgbotapi.Message) {
	if !c.isAdmin(msg) {
		return
	}
	if !c.purger.Stop(msg.Chat.ID) {
		c.reply(msg.Chat.ID, "Nothing is running here.")
	}
}

// isAdmin checks the sender's membership. Channel posts carry no sender;
// anyone who can post to a channel is an admin already.
func (c *Cleaner) isAdmin(msg *tgbotapi.Message) bool {
	if msg.From == nil {
		return msg.Chat.IsChannel()
	}
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: msg.Chat.ID,
			UserID: msg.From.ID,
		},
	})
	if err != nil {
		c.logger.Error("getChatMember failed", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "err", err)
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

func (c *Cleaner) reply(chatID int64, text string) {
	if _, err := c.bot.Send(c.htmlMessage(chatID, text)); err != nil {
		c.logger.Error("cleaner reply failed", "chat_id", chatID, "err", err)
	}
}

func (c *Cleaner) htmlMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

// parseDeleteRange validates "/del <start> <end>" arguments against the
// configured range cap.
func parseDeleteRange(args string, maxRange int) (startID, endID int, err error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two message IDs")
	}
	startID, err = strconv.Atoi(fields[0])
	if err != nil || startID < 1 {
		return 0, 0, fmt.Errorf("invalid start ID %q", fields[0])
	}
	endID, err = strconv.Atoi(fields[1])
	if err != nil || endID < 1 {
		return 0, 0, fmt.Errorf("invalid end ID %q", fields[1])
	}
	if endID < startID {
		return 0, 0, fmt.Errorf("end ID must not be below start ID")
	}
	if endID-startID+1 > maxRange {
		return 0, 0, fmt.Errorf("range too large, maximum is %d messages", maxRange)
	}
	return startID, endID, nil
}
