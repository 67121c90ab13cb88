package handlers

import (
	"fmt"
	"sort"
	"strings"

	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

func statusEmoji(status string) string {
	switch status {
	case storage.StatusInactivity:
		return "⏰"
	case storage.StatusStaffClosed:
		return "✅"
	case storage.StatusChannelDeleted:
		return "❌"
	default:
		return "📁"
	}
}

func (h *Hub) handleTicketHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) && !hasAnyRole(i.Member, h.cfg.Tickets.CloseRoles) {
		respond(s, i, "Only staff can browse ticket history.", true)
		return
	}

	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return
	}

	switch opts[0].Name {
	case "user":
		h.handleHistoryUser(s, i, opts[0].Options)
	case "stats":
		h.handleHistoryStats(s, i)
	}
}

func (h *Hub) handleHistoryUser(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	m := subOptMap(opts)
	target := m["user"].UserValue(s)

	entries, err := h.history.HistoryForUser(target.ID)
	if err != nil {
		respond(s, i, "Failed to load ticket history.", true)
		return
	}
	if len(entries) == 0 {
		respond(s, i, fmt.Sprintf("No archived tickets for <@%s>.", target.ID), true)
		return
	}

	byStatus := make(map[string][]storage.HistoryEntry)
	for _, e := range entries {
		byStatus[e.Status] = append(byStatus[e.Status], e)
	}

	statuses := make([]string, 0, len(byStatus))
	for st := range byStatus {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)

	var fields []*discordgo.MessageEmbedField
	for _, st := range statuses {
		var b strings.Builder
		for idx, e := range byStatus[st] {
			if idx >= 10 {
				b.WriteString(fmt.Sprintf("... and %d more\n", len(byStatus[st])-idx))
				break
			}
			b.WriteString(fmt.Sprintf("`%s` closed <t:%d:R>\n", e.Category, e.ClosedAt.Unix()))
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s %s (%d)", statusEmoji(st), st, len(byStatus[st])),
			Value: b.String(),
		})
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Ticket History for %s", target.Username),
		Color:  0x5865F2,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d archived tickets", len(entries))},
	}, true)
}

func (h *Hub) handleHistoryStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	stats, err := h.history.Stats()
	if err != nil {
		respond(s, i, "Failed to load ticket stats.", true)
		return
	}
	if stats.Total == 0 {
		respond(s, i, "No archived tickets yet.", true)
		return
	}

	var statusLines, categoryLines strings.Builder
	for _, st := range sortedKeys(stats.ByStatus) {
		statusLines.WriteString(fmt.Sprintf("%s %s: **%d**\n", statusEmoji(st), st, stats.ByStatus[st]))
	}
	for _, cat := range sortedKeys(stats.ByCategory) {
		categoryLines.WriteString(fmt.Sprintf("%s: **%d**\n", cat, stats.ByCategory[cat]))
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "📊 Ticket Stats",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total", Value: fmt.Sprintf("%d", stats.Total), Inline: true},
			{Name: "By Outcome", Value: statusLines.String(), Inline: true},
			{Name: "By Category", Value: categoryLines.String(), Inline: true},
		},
	}, true)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
