package automod

import (
	"log"
	"regexp"

	"github.com/bwmarrin/discordgo"
)

var ticketTopicRe = regexp.MustCompile(`(?i)ticket`)

type Config struct {
	GuildID string
	RuleID  string
}

// Syncer keeps the AutoMod rule's exempt-channel list in step with ticket
// channels: channels whose topic mentions "ticket" are exempted on creation
// and removed again when deleted.
type Syncer struct {
	config Config
}

func NewSyncer(config Config) *Syncer {
	return &Syncer{config: config}
}

func (a *Syncer) HandleChannelCreate(s *discordgo.Session, e *discordgo.ChannelCreate) {
	if e.Type != discordgo.ChannelTypeGuildText || !ticketTopicRe.MatchString(e.Topic) {
		return
	}

	rule, err := s.AutoModerationRule(a.config.GuildID, a.config.RuleID)
	if err != nil {
		log.Printf("automod: fetching rule %s failed: %v", a.config.RuleID, err)
		return
	}

	exempt := exemptChannels(rule)
	for _, id := range exempt {
		if id == e.ID {
			return
		}
	}
	exempt = append(exempt, e.ID)

	if _, err := s.AutoModerationRuleEdit(a.config.GuildID, a.config.RuleID, &discordgo.AutoModerationRule{ExemptChannels: &exempt}); err != nil {
		log.Printf("automod: adding exemption for channel %s failed: %v", e.Name, err)
		return
	}
	log.Printf("automod: exemption added for channel %s", e.Name)
}

func (a *Syncer) HandleChannelDelete(s *discordgo.Session, e *discordgo.ChannelDelete) {
	if e.Type != discordgo.ChannelTypeGuildText || !ticketTopicRe.MatchString(e.Topic) {
		return
	}

	rule, err := s.AutoModerationRule(a.config.GuildID, a.config.RuleID)
	if err != nil {
		log.Printf("automod: fetching rule %s failed: %v", a.config.RuleID, err)
		return
	}

	filtered := make([]string, 0)
	for _, id := range exemptChannels(rule) {
		if id != e.ID {
			filtered = append(filtered, id)
		}
	}

	if _, err := s.AutoModerationRuleEdit(a.config.GuildID, a.config.RuleID, &discordgo.AutoModerationRule{ExemptChannels: &filtered}); err != nil {
		log.Printf("automod: removing exemption for channel %s failed: %v", e.Name, err)
		return
	}
	log.Printf("automod: exemption removed for deleted channel %s", e.Name)
}

func exemptChannels(rule *discordgo.AutoModerationRule) []string {
	if rule.ExemptChannels == nil {
		return nil
	}
	return *rule.ExemptChannels
}
