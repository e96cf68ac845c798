package verification

import (
	"github.com/bwmarrin/discordgo"
)

// DiscordGateway implements Gateway on a live discordgo session. Threads
// are private threads under the claim channel.
type DiscordGateway struct {
	session        *discordgo.Session
	guildID        string
	claimChannelID string
}

func NewDiscordGateway(session *discordgo.Session, guildID, claimChannelID string) *DiscordGateway {
	return &DiscordGateway{session: session, guildID: guildID, claimChannelID: claimChannelID}
}

func (g *DiscordGateway) HasRole(userID, roleID string) (bool, error) {
	member, err := g.session.GuildMember(g.guildID, userID)
	if err != nil {
		return false, err
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (g *DiscordGateway) GrantRole(userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(g.guildID, userID, roleID)
}

func (g *DiscordGateway) CreateThread(userID, username, prefix string) (string, error) {
	thread, err := g.session.ThreadStartComplex(g.claimChannelID, &discordgo.ThreadStart{
		Name:                prefix + "-" + username,
		AutoArchiveDuration: 60,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	})
	if err != nil {
		return "", err
	}
	if err := g.session.ThreadMemberAdd(thread.ID, userID); err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (g *DiscordGateway) ThreadExists(threadID string) bool {
	_, err := g.session.Channel(threadID)
	return err == nil
}

func (g *DiscordGateway) ThreadURL(threadID string) string {
	return "https://discord.com/channels/" + g.guildID + "/" + threadID
}

func (g *DiscordGateway) SendMessage(channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content)
	return err
}

func (g *DiscordGateway) SendMessageWithButton(channelID, content, buttonID, label string) error {
	_, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						CustomID: buttonID,
						Label:    label,
						Style:    discordgo.SecondaryButton,
					},
				},
			},
		},
	})
	return err
}
