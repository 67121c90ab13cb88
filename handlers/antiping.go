package handlers

import (
	"fmt"
	"log"

	"smp-bot/config"
	"smp-bot/lang"

	"github.com/bwmarrin/discordgo"
)

// AntiPing deletes messages that ping protected users and points the sender
// at the ticket system instead.
type AntiPing struct {
	protected map[string]bool
	cfg       *config.Config
}

func NewAntiPing(cfg *config.Config) *AntiPing {
	protected := make(map[string]bool, len(cfg.AntiPing.ProtectedUsers))
	for _, id := range cfg.AntiPing.ProtectedUsers {
		protected[id] = true
	}
	return &AntiPing{protected: protected, cfg: cfg}
}

// Handle reports whether the message was removed.
func (a *AntiPing) Handle(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if len(a.protected) == 0 {
		return false
	}

	pinged := false
	for _, u := range m.Mentions {
		if a.protected[u.ID] {
			pinged = true
			break
		}
	}
	if !pinged {
		return false
	}

	// A protected user pinging another protected user is fine.
	if a.protected[m.Author.ID] {
		return false
	}

	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		log.Printf("[AntiPing] Failed to delete message %s: %v", m.ID, err)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔕 Please don't ping staff directly",
		Description: lang.T("antiping_notice", "channel", fmt.Sprintf("<#%s>", a.cfg.Tickets.MenuChannel)),
		Color:       0xED4245,
	}
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: m.Author.Mention(),
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		// Some channels reject embeds, fall back to plain text.
		_, _ = s.ChannelMessageSend(m.ChannelID,
			m.Author.Mention()+" "+lang.T("antiping_notice", "channel", fmt.Sprintf("<#%s>", a.cfg.Tickets.MenuChannel)))
	}
	return true
}
