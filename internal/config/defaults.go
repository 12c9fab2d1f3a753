package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Telegram: TelegramConfig{},
		Store: StoreConfig{
			DBPath: "~/.supportbot/supportbot.db",
		},
		Relay: RelayConfig{
			Workers:   4,
			QueueSize: 100,
			AutoAck:   true,
		},
		Cleaner: CleanerConfig{
			MaxRange:  1000,
			BatchSize: 10,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9099",
		},
	}
}
