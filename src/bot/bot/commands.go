package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

var commandDefinitions = []*discordgo.ApplicationCommand{
	{
		Name:        "start-again-validator",
		Description: "Restart your validator verification",
	},
	{
		Name:        "start-again-delegator",
		Description: "Restart your delegator verification",
	},
}

func registerSlashCommands(s *discordgo.Session, guildID string) error {
	if guildID == "" {
		return fmt.Errorf("bot: guildID is required to register slash commands")
	}

	for _, definition := range commandDefinitions {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition); err != nil {
			return fmt.Errorf("register command %q: %w", definition.Name, err)
		}
		log.Printf("Registered slash command /%s", definition.Name)
	}

	return nil
}
