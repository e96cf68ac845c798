package config

import (
	"log"
	"os"
	"strconv"

	"github.com/ccdcommunity/rolebot/src/data"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Config struct {
	Token            string
	GuildID          string
	TeamRoleID       string
	ValidatorRoleID  string
	DelegatorRoleID  string
	DevRoleID        string
	ClaimChannelID   string
	AutoModRuleID    string
	ClientPath       string
	GrpcHost         string
	MinDelegation    decimal.Decimal
	FreshnessSeconds int
	GithubClientID   string
	ServerURL        string
	MySQLDSN         string
	RedisURL         string
}

// Load reads configuration from the settings table with environment
// fallbacks, the same order the rest of the suite uses.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	minDelegation := decimal.NewFromInt(1000)
	if raw := setting("min_delegation_ccd", "MIN_DELEGATION_CCD", ""); raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			minDelegation = d
		}
	}

	freshness := 3600
	if raw := setting("freshness_seconds", "FRESHNESS_SECONDS", ""); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			freshness = n
		}
	}

	return Config{
		Token:            setting("discord_token", "DISCORD_BOT_TOKEN", ""),
		GuildID:          setting("guild_id", "DISCORD_GUILD_ID", ""),
		TeamRoleID:       setting("team_role_id", "TEAM_ROLE_ID", ""),
		ValidatorRoleID:  setting("validator_role_id", "VALIDATOR_ROLE_ID", ""),
		DelegatorRoleID:  setting("delegator_role_id", "DELEGATOR_ROLE_ID", ""),
		DevRoleID:        setting("dev_role_id", "DEV_ROLE_ID", ""),
		ClaimChannelID:   setting("claim_channel_id", "CLAIM_CHANNEL_ID", ""),
		AutoModRuleID:    setting("automod_rule_id", "AUTOMOD_RULE_ID", ""),
		ClientPath:       setting("concordium_client_path", "CONCORDIUM_CLIENT_PATH", "concordium-client"),
		GrpcHost:         setting("grpc_host", "GRPC_HOST", "grpc.mainnet.concordium.software"),
		MinDelegation:    minDelegation,
		FreshnessSeconds: freshness,
		GithubClientID:   setting("github_client_id", "CLIENT_ID", ""),
		ServerURL:        setting("server_url", "SERVER_URL", ""),
		MySQLDSN:         GetMySQLDSN(),
		RedisURL:         getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
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
