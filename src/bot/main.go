package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccdcommunity/rolebot/src/bot/bot"
	"github.com/ccdcommunity/rolebot/src/bot/config"
	"github.com/ccdcommunity/rolebot/src/data"
)

func main() {
	db := data.MustMySQL(config.GetMySQLDSN())

	cfg := config.Load(db)

	if cfg.Token == "" {
		log.Fatal("DISCORD_BOT_TOKEN not set in database or environment")
	}
	if cfg.GuildID == "" {
		log.Fatal("DISCORD_GUILD_ID not set in database or environment")
	}
	if cfg.ClaimChannelID == "" {
		log.Fatal("CLAIM_CHANNEL_ID not set in database or environment")
	}
	if cfg.ValidatorRoleID == "" || cfg.DelegatorRoleID == "" {
		log.Fatal("VALIDATOR_ROLE_ID / DELEGATOR_ROLE_ID not set in database or environment")
	}

	rdb := data.MustRedis(cfg.RedisURL)

	b, err := bot.New(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	log.Println("Discord bot is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	b.Stop()
	log.Println("Discord bot stopped gracefully")
}
