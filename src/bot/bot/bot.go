package bot

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/ccdcommunity/rolebot/src/bot/components/automod"
	"github.com/ccdcommunity/rolebot/src/bot/components/devauth"
	"github.com/ccdcommunity/rolebot/src/bot/components/verification"
	"github.com/ccdcommunity/rolebot/src/bot/config"
	"github.com/ccdcommunity/rolebot/src/data"
	"github.com/ccdcommunity/rolebot/src/ledger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const roleMenuID = "role_verification_menu"

type Bot struct {
	session   *discordgo.Session
	db        *gorm.DB
	rdb       *redis.Client
	config    config.Config
	validator *verification.Engine
	delegator *verification.Engine
	devAuth   *devauth.Handler
	automod   *automod.Syncer
}

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		session: dg,
		db:      db,
		rdb:     rdb,
		config:  cfg,
	}

	bot.initializeComponents()
	bot.registerHandlers()

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentGuildModeration

	return bot, nil
}

func (b *Bot) initializeComponents() {
	gateway := verification.NewDiscordGateway(b.session, b.config.GuildID, b.config.ClaimChannelID)
	records := data.NewVerificationStore(b.db)
	sessions := verification.NewMemorySessionStore()
	oracle := ledger.NewOracle(ledger.NewClient(b.config.ClientPath, b.config.GrpcHost))
	freshness := time.Duration(b.config.FreshnessSeconds) * time.Second

	b.validator = verification.NewEngine(verification.Config{
		Role:      verification.ValidatorRole(b.config.ValidatorRoleID),
		Oracle:    oracle,
		Records:   records,
		Sessions:  sessions,
		Gateway:   gateway,
		Freshness: freshness,
	})

	b.delegator = verification.NewEngine(verification.Config{
		Role:      verification.DelegatorRole(b.config.DelegatorRoleID, b.config.MinDelegation),
		Oracle:    oracle,
		Records:   records,
		Sessions:  sessions,
		Gateway:   gateway,
		Freshness: freshness,
	})

	b.devAuth = devauth.NewHandler(devauth.Config{
		Redis:     b.rdb,
		Members:   gateway,
		DevRoleID: b.config.DevRoleID,
		ClientID:  b.config.GithubClientID,
		ServerURL: b.config.ServerURL,
	})

	b.automod = automod.NewSyncer(automod.Config{
		GuildID: b.config.GuildID,
		RuleID:  b.config.AutoModRuleID,
	})
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleMessage)
	b.session.AddHandler(b.handleInteraction)
	if b.config.AutoModRuleID != "" {
		b.session.AddHandler(b.automod.HandleChannelCreate)
		b.session.AddHandler(b.automod.HandleChannelDelete)
	}
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() {
	b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s", event.User.Username)

	if err := registerSlashCommands(s, b.config.GuildID); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if m.Content == "!setup" {
		b.handleSetup(s, m)
		return
	}

	ctx := context.Background()
	if b.validator.HandleMessage(ctx, m.Author.ID, m.ChannelID, m.Content) {
		return
	}
	b.delegator.HandleMessage(ctx, m.Author.ID, m.ChannelID, m.Content)
}

func (b *Bot) handleSetup(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Member == nil || !hasRoleID(m.Member.Roles, b.config.TeamRoleID) {
		if _, err := s.ChannelMessageSendReply(m.ChannelID, "❌ You do not have permission to use this command.", m.Reference()); err != nil {
			log.Printf("bot: setup permission reply failed: %v", err)
		}
		return
	}

	menu := discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    roleMenuID,
		Placeholder: "Select a role to verify",
		Options: []discordgo.SelectMenuOption{
			{Label: "Get developer role", Description: "Verify your GitHub account", Value: "verify_dev"},
			{Label: "Get validator role", Description: "Verify validator ownership via on-chain transaction", Value: "verify_validator"},
			{Label: "Get delegator role", Description: "Verify delegation via on-chain transaction", Value: "verify_delegator"},
		},
	}

	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: "🔽 Select the role you want to verify:",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}},
		},
	})
	if err != nil {
		log.Printf("bot: posting role menu failed: %v", err)
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	}
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, username := interactionUser(i)
	if userID == "" {
		return
	}

	ctx := context.Background()
	customID := i.MessageComponentData().CustomID

	switch customID {
	case roleMenuID:
		values := i.MessageComponentData().Values
		if len(values) == 0 {
			return
		}
		var msg string
		switch values[0] {
		case "verify_dev":
			msg = b.devAuth.Start(ctx, userID)
		case "verify_validator":
			msg = b.validator.Start(ctx, userID, username)
		case "verify_delegator":
			msg = b.delegator.Start(ctx, userID, username)
		default:
			return
		}
		respondEphemeral(s, i, msg)

	case b.validator.Role().DeleteButtonID(), b.delegator.Role().DeleteButtonID():
		if _, err := s.ChannelDelete(i.ChannelID); err != nil {
			log.Printf("bot: thread deletion failed: %v", err)
			respondEphemeral(s, i, "❌ Failed to delete this thread. Please try again later.")
		}
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID, _ := interactionUser(i)
	if userID == "" {
		return
	}

	ctx := context.Background()
	name := i.ApplicationCommandData().Name
	log.Printf("Received command: /%s", name)

	switch name {
	case b.validator.Role().RestartCommand:
		respondEphemeral(s, i, b.validator.Restart(ctx, userID))
	case b.delegator.Role().RestartCommand:
		respondEphemeral(s, i, b.delegator.Restart(ctx, userID))
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("bot: interaction response failed: %v", err)
	}
}

func interactionUser(i *discordgo.InteractionCreate) (id, username string) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID, i.Member.User.Username
	}
	if i.User != nil {
		return i.User.ID, i.User.Username
	}
	return "", ""
}

func hasRoleID(roles []string, roleID string) bool {
	for _, id := range roles {
		if id == roleID {
			return true
		}
	}
	return false
}
