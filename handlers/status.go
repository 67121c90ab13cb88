package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"smp-bot/config"
	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

type serverStatus struct {
	Online  bool `json:"online"`
	Players struct {
		Online int `json:"online"`
		Max    int `json:"max"`
		List   []struct {
			Name string `json:"name"`
		} `json:"list"`
	} `json:"players"`
	Version string `json:"version"`
	Motd    struct {
		Clean []string `json:"clean"`
	} `json:"motd"`
}

// playerNames renders up to ten online player names, with a count for the
// rest. Empty when the API reports no name list.
func playerNames(st *serverStatus) string {
	names := make([]string, 0, len(st.Players.List))
	for _, p := range st.Players.List {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	if len(names) > 10 {
		return fmt.Sprintf("%s and %d more", strings.Join(names[:10], ", "), len(names)-10)
	}
	return strings.Join(names, ", ")
}

// StatusUpdater polls the Minecraft server and keeps a status embed and the
// status channel name in sync with it.
type StatusUpdater struct {
	cfg    *config.Config
	state  *storage.State
	client *http.Client
	stop   chan struct{}

	lastOnline *bool
}

func NewStatusUpdater(cfg *config.Config, state *storage.State) *StatusUpdater {
	return &StatusUpdater{
		cfg:    cfg,
		state:  state,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func statusCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "status", Description: "Show the Minecraft server status"},
	}
}

func (u *StatusUpdater) Start(s *discordgo.Session) {
	u.stop = make(chan struct{})
	go func() {
		interval := time.Duration(u.cfg.Status.IntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		u.refresh(s)
		for {
			select {
			case <-ticker.C:
				u.refresh(s)
			case <-u.stop:
				return
			}
		}
	}()
	log.Printf("[Status] Poller running for %s (%s)", u.cfg.Status.ServerAddress, u.cfg.Status.Edition)
}

func (u *StatusUpdater) Stop() {
	if u.stop != nil {
		close(u.stop)
		u.stop = nil
	}
}

func (u *StatusUpdater) fetch() (*serverStatus, error) {
	base := "https://api.mcsrvstat.us/3/"
	if u.cfg.Status.Edition == "bedrock" {
		base = "https://api.mcsrvstat.us/bedrock/3/"
	}

	resp, err := u.client.Get(base + u.cfg.Status.ServerAddress)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcsrvstat returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var st serverStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (u *StatusUpdater) buildEmbed(st *serverStatus) *discordgo.MessageEmbed {
	if !st.Online {
		return &discordgo.MessageEmbed{
			Title:       "🔴 Server Offline",
			Description: fmt.Sprintf("`%s` is not responding.", u.cfg.Status.ServerAddress),
			Color:       0xED4245,
			Timestamp:   time.Now().Format(time.RFC3339),
		}
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Players", Value: fmt.Sprintf("%d / %d", st.Players.Online, st.Players.Max), Inline: true},
		{Name: "Version", Value: st.Version, Inline: true},
	}
	if names := playerNames(st); names != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Online Players", Value: names})
	}
	if motd := strings.Join(st.Motd.Clean, " "); motd != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "MOTD", Value: motd})
	}

	return &discordgo.MessageEmbed{
		Title:     "🟢 Server Online",
		Fields:    fields,
		Color:     0x57F287,
		Footer:    &discordgo.MessageEmbedFooter{Text: u.cfg.Status.ServerAddress},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (u *StatusUpdater) refresh(s *discordgo.Session) {
	st, err := u.fetch()
	if err != nil {
		log.Printf("[Status] Fetch failed: %v", err)
		return
	}

	chID := u.cfg.Status.Channel
	if chID == "" {
		return
	}

	// Rename the channel only on transitions, edits are rate limited hard.
	if u.lastOnline == nil || *u.lastOnline != st.Online {
		name := "🔴・status"
		if st.Online {
			name = "🟢・status"
		}
		if _, err := s.ChannelEdit(chID, &discordgo.ChannelEdit{Name: name}); err != nil {
			log.Printf("[Status] Failed to rename channel: %v", err)
		}
		online := st.Online
		u.lastOnline = &online
	}

	embed := u.buildEmbed(st)
	msgID := u.state.StatusMessage()
	if msgID != "" {
		if _, err := s.ChannelMessageEditEmbed(chID, msgID, embed); err == nil {
			return
		}
	}

	msg, err := s.ChannelMessageSendEmbed(chID, embed)
	if err != nil {
		log.Printf("[Status] Failed to post status message: %v", err)
		return
	}
	u.state.SetStatusMessage(msg.ID)
	_ = u.state.Save()
}

func (u *StatusUpdater) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferResponse(s, i, false)

	st, err := u.fetch()
	if err != nil {
		followup(s, i, "Couldn't reach the status API, try again in a minute.")
		return
	}
	followupEmbed(s, i, u.buildEmbed(st))
}
