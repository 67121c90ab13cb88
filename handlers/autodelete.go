package handlers

import (
	"log"

	"smp-bot/config"

	"github.com/bwmarrin/discordgo"
)

// AutoDelete silently removes every message posted by the configured user
// IDs. Meant for muting misbehaving webhooks or bridge accounts that cannot
// be banned outright.
type AutoDelete struct {
	targets map[string]bool
}

func NewAutoDelete(cfg *config.Config) *AutoDelete {
	targets := make(map[string]bool, len(cfg.AutoDelete.UserIDs))
	for _, id := range cfg.AutoDelete.UserIDs {
		targets[id] = true
	}
	return &AutoDelete{targets: targets}
}

func (a *AutoDelete) targeted(userID string) bool {
	return a.targets[userID]
}

// Handle reports whether the message was removed.
func (a *AutoDelete) Handle(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if !a.targeted(m.Author.ID) {
		return false
	}
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		log.Printf("[AutoDelete] Failed to delete message %s from %s: %v", m.ID, m.Author.ID, err)
	}
	return true
}
