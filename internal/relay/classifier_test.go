package relay

import (
	"errors"
	"strings"
	"testing"

	"supportbot/internal/domain"
)

func TestClassify_Kinds(t *testing.T) {
	sess := &domain.Session{CorrespondentID: 99, DisplayName: "Grace", Handle: "grace"}

	tests := []struct {
		name string
		err  string
		want NoticeKind
	}{
		{"blocked", "Forbidden: bot was blocked by the user", NoticeRecipientBlocked},
		{"blocked plain", "user BLOCKED the bot", NoticeRecipientBlocked},
		{"chat not found", "Bad Request: chat not found", NoticeAccountMissing},
		{"user not found", "Bad Request: user not found", NoticeAccountMissing},
		{"cannot initiate", "Forbidden: bot can't initiate conversation with a user", NoticeCannotInitiate},
		{"forbidden", "Forbidden: not enough rights", NoticeForbidden},
		{"unknown", "Gateway Timeout", NoticeUnknown},
		{"empty", "", NoticeUnknown},
	}
	for _, tt := range tests {
		got := Classify(sess, errors.New(tt.err))
		if got.Kind != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.want, got.Kind)
		}
		if got.Text == "" {
			t.Fatalf("%s: empty notice text", tt.name)
		}
	}
}

func TestClassify_UnknownEmbedsRawError(t *testing.T) {
	sess := &domain.Session{CorrespondentID: 1}
	raw := "something nobody anticipated: code 418"
	notice := Classify(sess, errors.New(raw))
	if notice.Kind != NoticeUnknown {
		t.Fatalf("expected unknown, got %s", notice.Kind)
	}
	if !strings.Contains(notice.Text, raw) {
		t.Fatalf("unknown notice must embed raw error, got %q", notice.Text)
	}
}

func TestClassify_EmbedsIdentity(t *testing.T) {
	sess := &domain.Session{CorrespondentID: 77, DisplayName: "Heidi", Handle: "heidi"}
	notice := Classify(sess, errors.New("bot was blocked by the user"))
	for _, want := range []string{"77", "Heidi", "@heidi"} {
		if !strings.Contains(notice.Text, want) {
			t.Fatalf("notice missing %q: %q", want, notice.Text)
		}
	}
}

func TestClassify_NilError(t *testing.T) {
	// Total function: never panics, even on nil.
	notice := Classify(&domain.Session{CorrespondentID: 1}, nil)
	if notice.Kind != NoticeUnknown {
		t.Fatalf("expected unknown for nil error, got %s", notice.Kind)
	}
}
