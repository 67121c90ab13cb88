package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

func minecraftCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "lookup",
			Description: "Look up a Minecraft profile",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "gamertag", Description: "Java username or Bedrock gamertag", Required: true},
				{
					Type: discordgo.ApplicationCommandOptionString, Name: "edition", Description: "Which edition", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Java", Value: "java"},
						{Name: "Bedrock", Value: "bedrock"},
					},
				},
			},
		},
		{
			Name:        "achievement",
			Description: "Generate a Minecraft achievement image",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Achievement text", Required: true},
			},
		},
	}
}

type mcProfile struct {
	Username string `json:"username"`
	UUID     string `json:"uuid"`
	XUID     string `json:"xuid"`
	Gamertag string `json:"gamertag"`
	Skin     string `json:"skin"`
}

func (h *Hub) handleLookup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	tag := optStr(opts, "gamertag", "")
	edition := optStr(opts, "edition", "java")

	deferResponse(s, i, false)

	reqURL := fmt.Sprintf("https://mcprofile.io/api/v1/%s/gamertag/%s", edition, url.PathEscape(tag))
	if edition == "java" {
		reqURL = fmt.Sprintf("https://mcprofile.io/api/v1/java/username/%s", url.PathEscape(tag))
	}

	resp, err := apiClient.Get(reqURL)
	if err != nil {
		followup(s, i, "Profile API did not respond.")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		followup(s, i, fmt.Sprintf("No %s profile found for `%s`.", edition, tag))
		return
	}

	var p mcProfile
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &p); err != nil {
		followup(s, i, "Profile API returned an unexpected response.")
		return
	}

	name := p.Username
	id := p.UUID
	idLabel := "UUID"
	if edition == "bedrock" {
		name = p.Gamertag
		id = p.XUID
		idLabel = "XUID"
	}

	embed := &discordgo.MessageEmbed{
		Title: "⛏️ " + name,
		Color: 0x57F287,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Edition", Value: edition, Inline: true},
			{Name: idLabel, Value: orDash(id), Inline: true},
		},
	}
	if p.Skin != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.Skin}
	}
	followupEmbed(s, i, embed)
}

// truncateRunes caps s at n characters without splitting a multi-byte rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (h *Hub) handleAchievement(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	text := truncateRunes(optStr(opts, "text", ""), 25)

	img := fmt.Sprintf("https://minecraftskinstealer.com/achievement/1/Achievement+Get%%21/%s", url.QueryEscape(text))
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Image: &discordgo.MessageEmbedImage{URL: img},
		Color: 0x57F287,
	}, false)
}
