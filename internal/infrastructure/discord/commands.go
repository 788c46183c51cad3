package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sportello-bot/sportello/internal/domain/trigger"
)

// SlashCommands returns the guild commands the bot registers on startup.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        trigger.CommandPanel,
			Description: "Invia il pannello ticket",
		},
		{
			Name:        trigger.CommandAddUser,
			Description: "Aggiunge un utente a questo ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        trigger.CommandUserOption,
					Description: "Utente da aggiungere",
					Required:    true,
				},
			},
		},
		{
			Name:        trigger.CommandRemoveUser,
			Description: "Rimuove un utente da questo ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        trigger.CommandUserOption,
					Description: "Utente da rimuovere",
					Required:    true,
				},
			},
		},
	}
}
