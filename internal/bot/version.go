package bot

// Set at build time with -ldflags "-X github.com/raine/pup-ancestry-bot/internal/bot.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)
