package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"smp-bot/config"

	"github.com/bwmarrin/discordgo"
)

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

var apiClient = &http.Client{Timeout: 10 * time.Second}

func apiCommands(cfg *config.Config) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "time",
			Description: "Show the current time in another timezone",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "zone", Description: "IANA timezone, e.g. Europe/Paris", Required: true},
			},
		},
	}
	if cfg.APIs.IPLocateKey != "" {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        "iplookup",
			Description: "Geolocate an IPv4 address",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "ip", Description: "IPv4 address", Required: true},
			},
		})
	}
	if cfg.APIs.SMSGatewayURL != "" {
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        "sms",
			Description: "Send an SMS through the gateway",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "number", Description: "Destination number", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Message text", Required: true},
			},
		})
	}
	return cmds
}

func (h *Hub) apiAllowed(userID string) bool {
	for _, id := range h.cfg.APIs.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (h *Hub) handleIPLookup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.apiAllowed(i.Member.User.ID) && !isAdmin(i) {
		respond(s, i, "You are not allowed to use this command.", true)
		return
	}

	opts := optionMap(i)
	ip := strings.TrimSpace(optStr(opts, "ip", ""))
	if !ipv4Pattern.MatchString(ip) {
		respond(s, i, "That doesn't look like an IPv4 address.", true)
		return
	}

	deferResponse(s, i, true)

	reqURL := fmt.Sprintf("https://iplocate.io/api/lookup/%s?apikey=%s", ip, url.QueryEscape(h.cfg.APIs.IPLocateKey))
	resp, err := apiClient.Get(reqURL)
	if err != nil {
		followup(s, i, "Lookup failed, the API did not respond.")
		return
	}
	defer resp.Body.Close()

	var data struct {
		Country string `json:"country"`
		City    string `json:"city"`
		Org     string `json:"org"`
		ASN     struct {
			Name string `json:"name"`
		} `json:"asn"`
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &data) != nil {
		followup(s, i, "Lookup failed, the API returned an unexpected response.")
		return
	}

	followupEmbed(s, i, &discordgo.MessageEmbed{
		Title: "🌐 IP Lookup: " + ip,
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Country", Value: orDash(data.Country), Inline: true},
			{Name: "City", Value: orDash(data.City), Inline: true},
			{Name: "Org", Value: orDash(data.Org), Inline: true},
			{Name: "ASN", Value: orDash(data.ASN.Name), Inline: true},
		},
	})
}

func (h *Hub) handleSMS(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !h.apiAllowed(i.Member.User.ID) && !isAdmin(i) {
		respond(s, i, "You are not allowed to use this command.", true)
		return
	}

	opts := optionMap(i)
	number := optStr(opts, "number", "")
	message := optStr(opts, "message", "")

	deferResponse(s, i, true)

	form := url.Values{}
	form.Set("number", number)
	form.Set("message", message)
	form.Set("key", h.cfg.APIs.SMSAPIKey)

	resp, err := apiClient.PostForm(h.cfg.APIs.SMSGatewayURL, form)
	if err != nil {
		followup(s, i, "SMS gateway did not respond.")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		followup(s, i, fmt.Sprintf("SMS gateway returned %d.", resp.StatusCode))
		return
	}
	followup(s, i, "📨 Message sent.")
}

func (h *Hub) handleTime(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	zone := optStr(opts, "zone", "")

	loc, err := time.LoadLocation(zone)
	if err != nil {
		respond(s, i, fmt.Sprintf("Unknown timezone `%s`. Use an IANA name like `Asia/Manila`.", zone), true)
		return
	}

	now := time.Now().In(loc)
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🕒 " + zone,
		Description: now.Format("Monday, 2 January 2006 15:04:05"),
		Color:       0x5865F2,
	}, false)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
