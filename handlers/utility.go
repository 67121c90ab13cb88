package handlers

import (
	"fmt"
	"time"

	"smp-bot/lang"

	"github.com/bwmarrin/discordgo"
)

const suggestionCooldown = time.Hour

func utilityCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "say",
			Description: "Make the bot say something",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "What to say", Required: true},
			},
		},
		{
			Name:        "rules",
			Description: "Show the server rules",
		},
		{
			Name:        "suggestion",
			Description: "Submit a suggestion",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Your suggestion", Required: true},
			},
		},
	}
}

func (h *Hub) handleSay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		respond(s, i, "Only admins can use this command.", true)
		return
	}

	opts := optionMap(i)
	message := optStr(opts, "message", "")

	respond(s, i, "Sent.", true)
	_, _ = s.ChannelMessageSend(i.ChannelID, message)
}

func (h *Hub) handleRules(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "📜 Server Rules",
		Description: lang.T("rules_body"),
		Color:       0x5865F2,
	}, false)
}

func (h *Hub) handleSuggestion(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := i.Member.User.ID
	key := "suggestion:" + userID
	if wait := h.cooldowns.Remaining(key, time.Now()); wait > 0 {
		mins := int(wait.Minutes()) + 1
		respond(s, i, fmt.Sprintf("You can submit another suggestion in %d minutes.", mins), true)
		return
	}

	opts := optionMap(i)
	text := optStr(opts, "text", "")

	msg, err := s.ChannelMessageSendEmbed(i.ChannelID, &discordgo.MessageEmbed{
		Title:       "💡 Suggestion",
		Description: text,
		Color:       0xFEE75C,
		Footer:      &discordgo.MessageEmbedFooter{Text: "From " + i.Member.User.Username},
	})
	if err != nil {
		respond(s, i, "Failed to post the suggestion.", true)
		return
	}

	_ = s.MessageReactionAdd(i.ChannelID, msg.ID, "👍")
	_ = s.MessageReactionAdd(i.ChannelID, msg.ID, "👎")

	h.cooldowns.Set(key, suggestionCooldown, time.Now())
	respond(s, i, "Suggestion posted!", true)
}
