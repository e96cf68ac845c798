package config

import (
	"log"
	"os"

	"github.com/ccdcommunity/rolebot/src/data"
	"gorm.io/gorm"
)

type Config struct {
	Port         string
	Token        string
	GuildID      string
	DevRoleID    string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	MySQLDSN     string
	RedisURL     string
}

// Load reads configuration from the settings table with environment
// fallbacks.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	return Config{
		Port:         setting("web_port", "PORT", "3000"),
		Token:        setting("discord_token", "DISCORD_BOT_TOKEN", ""),
		GuildID:      setting("guild_id", "DISCORD_GUILD_ID", ""),
		DevRoleID:    setting("dev_role_id", "DEV_ROLE_ID", ""),
		ClientID:     setting("github_client_id", "CLIENT_ID", ""),
		ClientSecret: setting("github_client_secret", "CLIENT_SECRET", ""),
		RedirectURI:  setting("redirect_uri", "REDIRECT_URI", ""),
		MySQLDSN:     GetMySQLDSN(),
		RedisURL:     getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}
}

func GetMySQLDSN() string {
	return getenv("MYSQL_DSN", "rolebot:rolebot@tcp(127.0.0.1:3306)/rolebot")
}

func setting(name, env, def string) string {
	if v := data.GetSetting(name); v != "" {
		return v
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
