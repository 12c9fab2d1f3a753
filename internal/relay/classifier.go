package relay

import (
	"fmt"
	"strings"

	"supportbot/internal/domain"
)

// NoticeKind categorizes a failed staff->correspondent delivery.
type NoticeKind string

const (
	NoticeRecipientBlocked NoticeKind = "recipient_blocked"
	NoticeAccountMissing   NoticeKind = "recipient_account_missing"
	NoticeCannotInitiate   NoticeKind = "cannot_initiate_conversation"
	NoticeForbidden        NoticeKind = "forbidden"
	NoticeUnknown          NoticeKind = "unknown"
)

// Notice is a staff-visible diagnostic for a delivery failure, posted back
// into the topic the reply came from.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Classify maps a raw gateway send error to a diagnostic notice. The bot
// API exposes no structured error taxonomy, only description strings, so
// matching is case-insensitive substring search; wording the matcher does
// not recognize falls through to NoticeUnknown. Classify never fails.
func Classify(sess *domain.Session, err error) Notice {
	var raw string
	if err != nil {
		raw = err.Error()
	}
	msg := strings.ToLower(raw)

	switch {
	case strings.Contains(msg, "blocked"):
		return Notice{
			Kind: NoticeRecipientBlocked,
			Text: fmt.Sprintf(
				"⚠️ <b>Cannot send message - User has blocked the bot</b>\n\n"+
					"👤 <b>User ID:</b> <code>%d</code>\n"+
					"📝 <b>User:</b> %s\n"+
					"📱 <b>Username:</b> @%s\n\n"+
					"💡 <b>Note:</b> The user needs to unblock the bot and send /start again to receive messages.",
				sess.CorrespondentID, orUnknown(sess.DisplayName), orUnknown(sess.Handle)),
		}
	case strings.Contains(msg, "chat not found") || strings.Contains(msg, "user not found"):
		return Notice{
			Kind: NoticeAccountMissing,
			Text: fmt.Sprintf(
				"⚠️ <b>Cannot send message - User account not found</b>\n\n"+
					"👤 <b>User ID:</b> <code>%d</code>\n\n"+
					"💡 <b>Possible reasons:</b>\n"+
					"• User deleted their Telegram account\n"+
					"• Invalid user ID\n"+
					"• User deactivated their account",
				sess.CorrespondentID),
		}
	case strings.Contains(msg, "can't initiate conversation"):
		return Notice{
			Kind: NoticeCannotInitiate,
			Text: fmt.Sprintf(
				"⚠️ <b>Cannot send message - Bot cannot initiate conversation</b>\n\n"+
					"👤 <b>User ID:</b> <code>%d</code>\n\n"+
					"💡 <b>Solution:</b> The user needs to send /start to the bot first.",
				sess.CorrespondentID),
		}
	case strings.Contains(msg, "forbidden"):
		return Notice{
			Kind: NoticeForbidden,
			Text: fmt.Sprintf(
				"⚠️ <b>Cannot send message - Access forbidden</b>\n\n"+
					"👤 <b>User ID:</b> <code>%d</code>\n\n"+
					"💡 <b>Note:</b> User may have blocked the bot or privacy settings prevent messaging.",
				sess.CorrespondentID),
		}
	default:
		return Notice{
			Kind: NoticeUnknown,
			Text: fmt.Sprintf(
				"❌ <b>Failed to send message to user</b>\n\n"+
					"👤 <b>User ID:</b> <code>%d</code>\n"+
					"🔍 <b>Error:</b> %s\n\n"+
					"💡 <b>Note:</b> Please check the error details above.",
				sess.CorrespondentID, raw),
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
