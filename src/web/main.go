package main

import (
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/ccdcommunity/rolebot/src/data"
	"github.com/ccdcommunity/rolebot/src/web/config"
	"github.com/ccdcommunity/rolebot/src/web/github"
	"github.com/ccdcommunity/rolebot/src/web/webserver"
)

func main() {
	db := data.MustMySQL(config.GetMySQLDSN())

	cfg := config.Load(db)

	if cfg.Token == "" {
		log.Fatal("DISCORD_BOT_TOKEN not set in database or environment")
	}
	if cfg.GuildID == "" || cfg.DevRoleID == "" {
		log.Fatal("DISCORD_GUILD_ID / DEV_ROLE_ID not set in database or environment")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		log.Fatal("CLIENT_ID / CLIENT_SECRET not set in database or environment")
	}

	rdb := data.MustRedis(cfg.RedisURL)

	discord, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}

	store := data.NewVerificationStore(db)
	srv := webserver.New(cfg, store, rdb, discord, github.NewClient())

	log.Printf("Server is running at http://0.0.0.0:%s", cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("Web server stopped: %v", err)
	}
}
