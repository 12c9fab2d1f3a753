package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Replies holds the user-facing reply texts. Each field falls back to the
// built-in default when left empty in the overrides file.
type Replies struct {
	// AutoAck is sent to a correspondent the moment their message arrives.
	AutoAck string `yaml:"autoAck"`
	// Welcome answers /start in a private chat.
	Welcome string `yaml:"welcome"`
	// Help answers /help in a private chat.
	Help string `yaml:"help"`
	// RelayFailure tells a correspondent their message could not be relayed.
	RelayFailure string `yaml:"relayFailure"`
}

func DefaultReplies() Replies {
	return Replies{
		AutoAck: "✅ Message received! Our team will reply in a few hours. Thank you! 🙏",
		Welcome: "👋 <b>Welcome to Support!</b>\n\n" +
			"Send me any message and our support team will respond soon.\n\n" +
			"You can send:\n" +
			"📝 Text messages\n" +
			"📷 Photos\n" +
			"🎥 Videos\n" +
			"📄 Files/Documents\n" +
			"🎵 Audio & Voice messages\n" +
			"😊 Stickers\n\n" +
			"⚡ <b>Quick Response:</b> You'll receive an instant confirmation when we get your message!\n\n" +
			"Our team will reply as soon as possible!",
		Help: "ℹ️ <b>How to use this bot:</b>\n\n" +
			"1️⃣ Just send your message/question\n" +
			"2️⃣ You'll get instant confirmation ✅\n" +
			"3️⃣ Our support team will see it\n" +
			"4️⃣ You'll receive a reply here\n\n" +
			"💬 All message types are supported!",
		RelayFailure: "❌ Sorry, there was an error processing your message. Please try again.",
	}
}

// LoadReplies reads the optional YAML overrides file. A missing path (or
// empty argument) just yields the defaults.
func LoadReplies(path string) (Replies, error) {
	replies := DefaultReplies()
	if path == "" {
		return replies, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return replies, nil
	}
	if err != nil {
		return replies, fmt.Errorf("read replies file %s: %w", path, err)
	}

	var overrides Replies
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return replies, fmt.Errorf("parse replies file %s: %w", path, err)
	}
	if overrides.AutoAck != "" {
		replies.AutoAck = overrides.AutoAck
	}
	if overrides.Welcome != "" {
		replies.Welcome = overrides.Welcome
	}
	if overrides.Help != "" {
		replies.Help = overrides.Help
	}
	if overrides.RelayFailure != "" {
		replies.RelayFailure = overrides.RelayFailure
	}
	return replies, nil
}
