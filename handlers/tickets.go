package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"smp-bot/config"
	"smp-bot/lang"
	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

type ticketCategory struct {
	ID          string
	Label       string
	Description string
	Emoji       string
}

var ticketCategories = []ticketCategory{
	{ID: "question", Label: "General Question", Description: "Ask the staff team anything", Emoji: "❓"},
	{ID: "partner", Label: "Partnership", Description: "Propose a partnership or collab", Emoji: "🤝"},
	{ID: "bug", Label: "Bug Report", Description: "Something on the server is broken", Emoji: "🐛"},
	{ID: "player", Label: "Player Report", Description: "Report a player breaking the rules", Emoji: "🚨"},
	{ID: "other", Label: "Other", Description: "Anything that does not fit above", Emoji: "📬"},
}

func categoryByID(id string) ticketCategory {
	for _, c := range ticketCategories {
		if c.ID == id {
			return c
		}
	}
	return ticketCategory{ID: id, Label: id, Emoji: "🎫"}
}

// TicketSystem owns the ticket lifecycle: the category menu, channel
// creation, claiming, closing, and the inactivity watcher. Everything it
// tracks lives in storage.State so a restart picks the open tickets back up.
type TicketSystem struct {
	cfg     *config.Config
	state   *storage.State
	history storage.Database

	watcher     *ticketWatcher
	refreshStop chan struct{}
}

func NewTicketSystem(cfg *config.Config, state *storage.State, history storage.Database) *TicketSystem {
	return &TicketSystem{cfg: cfg, state: state, history: history}
}

func ticketCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ticket",
			Description: "Manage the current ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a user to this ticket",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to add", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "close",
					Description: "Close this ticket",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the ticket is being closed", Required: false},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show details about this ticket",
				},
			},
		},
		{
			Name:        "tickethistory",
			Description: "Browse archived tickets",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "user",
					Description: "Archived tickets for a user",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to look up", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stats",
					Description: "Ticket totals by category and outcome",
				},
			},
		},
	}
}

// PostMenu replaces the ticket menu message in the configured channel. The
// previous menu is deleted first so the channel never shows two menus.
func (t *TicketSystem) PostMenu(s *discordgo.Session) {
	chID := t.cfg.Tickets.MenuChannel
	if chID == "" {
		return
	}

	if old := t.state.MenuMessage(chID); old != "" {
		_ = s.ChannelMessageDelete(chID, old)
	}

	embed := &discordgo.MessageEmbed{
		Title:       t.cfg.Tickets.MenuTitle,
		Description: t.cfg.Tickets.MenuDescription,
		Color:       0x5865F2,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Pick a category below to open a ticket"},
	}

	menuOpts := make([]discordgo.SelectMenuOption, 0, len(ticketCategories))
	for _, cat := range ticketCategories {
		menuOpts = append(menuOpts, discordgo.SelectMenuOption{
			Label:       cat.Label,
			Value:       cat.ID,
			Description: cat.Description,
			Emoji:       &discordgo.ComponentEmoji{Name: cat.Emoji},
		})
	}

	msg, err := s.ChannelMessageSendComplex(chID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    "ticket-menu",
						Placeholder: "Select a category...",
						Options:     menuOpts,
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("[Ticket] Failed to post menu: %v", err)
		return
	}

	t.state.SetMenuMessage(chID, msg.ID)
	_ = t.state.Save()
}

// StartMenuRefresher reposts the menu on an interval so the select resets
// for users who picked a category without finishing.
func (t *TicketSystem) StartMenuRefresher(s *discordgo.Session) {
	if t.cfg.Tickets.MenuRefreshMinutes <= 0 {
		return
	}
	t.refreshStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(t.cfg.Tickets.MenuRefreshMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.PostMenu(s)
			case <-t.refreshStop:
				return
			}
		}
	}()
}

func (t *TicketSystem) StopMenuRefresher() {
	if t.refreshStop != nil {
		close(t.refreshStop)
		t.refreshStop = nil
	}
}

func (t *TicketSystem) StartWatcher(s *discordgo.Session) {
	t.watcher = newTicketWatcher(
		t.state,
		t.history,
		&sessionGateway{sys: t, session: s},
		time.Duration(t.cfg.Tickets.AlertSeconds)*time.Second,
		time.Duration(t.cfg.Tickets.DeleteSeconds)*time.Second,
		time.Duration(t.cfg.Tickets.PollSeconds)*time.Second,
	)
	t.watcher.Start()
}

func (t *TicketSystem) StopWatcher() {
	if t.watcher != nil {
		t.watcher.Stop()
	}
}

// RestoreTickets reconciles persisted tickets against the live guild after a
// restart. Tickets whose channels vanished while the bot was down get
// archived as channel_deleted; survivors get fresh activity clocks so
// downtime never counts toward inactivity.
func (t *TicketSystem) RestoreTickets(s *discordgo.Session) {
	t.restore(&sessionGateway{sys: t, session: s}, time.Now())
}

func (t *TicketSystem) restore(gw ticketGateway, now time.Time) int {
	restored := 0
	for _, tk := range t.state.TicketList() {
		if !gw.ChannelExists(tk.ChannelID) {
			if t.state.RemoveTicket(tk.ChannelID) {
				t.archive(tk, storage.StatusChannelDeleted, "channel removed while offline", now)
				log.Printf("[Ticket] Dropped ticket %s (channel gone)", tk.ChannelID)
			}
			continue
		}
		restored++
	}
	t.state.ResetTicketClocks(now)
	_ = t.state.Save()
	log.Printf("[Ticket] Restored %d open tickets", restored)
	return restored
}

func (t *TicketSystem) HandleMenuSelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	category := values[0]

	for _, tk := range t.state.TicketList() {
		if tk.UserID == i.Member.User.ID {
			respond(s, i, fmt.Sprintf("You already have an open ticket: <#%s>", tk.ChannelID), true)
			return
		}
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "ticket-modal:" + category,
			Title:    categoryByID(category).Label,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "describe-issue",
							Label:       "Describe your issue",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "Tell us what you need help with",
							Required:    true,
							MaxLength:   1000,
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("[Ticket] Failed to open modal: %v", err)
	}
}

func (t *TicketSystem) HandleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	category := strings.TrimPrefix(data.CustomID, "ticket-modal:")

	answers := make(map[string]string)
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if in, ok := comp.(*discordgo.TextInput); ok {
				answers[in.CustomID] = in.Value
			}
		}
	}

	t.createTicket(s, i, category, answers)
}

func sanitizeChannelName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '.':
			b.WriteRune('-')
		}
	}
	out := b.String()
	if out == "" {
		out = "ticket"
	}
	if len(out) > 90 {
		out = out[:90]
	}
	return out
}

func (t *TicketSystem) createTicket(s *discordgo.Session, i *discordgo.InteractionCreate, category string, answers map[string]string) {
	user := i.Member.User
	cat := categoryByID(category)
	channelName := sanitizeChannelName(category + "-" + user.Username)

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: i.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{
			ID:    user.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles | discordgo.PermissionReadMessageHistory,
		},
	}
	for _, roleID := range t.cfg.Tickets.ClaimRoles {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles | discordgo.PermissionReadMessageHistory | discordgo.PermissionManageMessages,
		})
	}

	ch, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 channelName,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             t.cfg.Tickets.DiscordCategory,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to create ticket channel: %v", err), true)
		return
	}

	now := time.Now()
	ticket := storage.Ticket{
		ChannelID:    ch.ID,
		UserID:       user.ID,
		Username:     user.Username,
		Category:     category,
		Answers:      answers,
		CreatedAt:    now,
		LastActivity: now,
		ClaimRoles:   t.cfg.Tickets.ClaimRoles,
		CloseRoles:   t.cfg.Tickets.CloseRoles,
	}
	t.state.PutTicket(ticket)
	_ = t.state.Save()

	fields := []*discordgo.MessageEmbedField{
		{Name: "Category", Value: cat.Emoji + " " + cat.Label, Inline: true},
		{Name: "Opened By", Value: fmt.Sprintf("<@%s>", user.ID), Inline: true},
	}
	if issue := answers["describe-issue"]; issue != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Issue", Value: issue})
	}

	embed := &discordgo.MessageEmbed{
		Title:       "New Ticket",
		Description: fmt.Sprintf("Welcome <@%s>! A staff member will claim your ticket shortly.", user.ID),
		Color:       0x57F287,
		Fields:      fields,
		Timestamp:   now.Format(time.RFC3339),
	}

	pingContent := fmt.Sprintf("<@%s>", user.ID)
	for _, roleID := range t.cfg.Tickets.ClaimRoles {
		pingContent += fmt.Sprintf(" | <@&%s>", roleID)
	}

	_, _ = s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content: pingContent,
		Embeds:  []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Claim", Style: discordgo.PrimaryButton,
						CustomID: "ticket-claim",
						Emoji:    &discordgo.ComponentEmoji{Name: "🙋"},
					},
					discordgo.Button{
						Label: "Close Ticket", Style: discordgo.DangerButton,
						CustomID: "ticket-close",
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
				},
			},
		},
	})

	respond(s, i, fmt.Sprintf("Ticket created: <#%s>", ch.ID), true)

	// Repost the menu so the select resets for the next user.
	t.PostMenu(s)

	log.Printf("[Ticket] Opened %s (%s) for %s", ch.ID, category, user.Username)
}

// Claim marks the ticket as claimed by userID. hasRole tells whether the
// claimer holds one of the ticket's claim roles; the returned ticket is the
// current holder when ErrAlreadyClaimed comes back.
func (t *TicketSystem) Claim(channelID, userID string, hasRole bool, now time.Time) (storage.Ticket, error) {
	ticket, ok := t.state.Ticket(channelID)
	if !ok {
		return storage.Ticket{}, ErrNotTicketChannel
	}
	if !hasRole {
		return ticket, ErrPermissionDenied
	}
	claimed, ok := t.state.ClaimTicket(channelID, userID, now)
	if !ok {
		return claimed, ErrAlreadyClaimed
	}
	_ = t.state.Save()
	return claimed, nil
}

func (t *TicketSystem) HandleClaimButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ticket, ok := t.state.Ticket(i.ChannelID)
	hasRole := ok && (isAdmin(i) || hasAnyRole(i.Member, ticket.ClaimRoles))

	claimed, err := t.Claim(i.ChannelID, i.Member.User.ID, hasRole, time.Now())
	switch {
	case errors.Is(err, ErrNotTicketChannel):
		respond(s, i, "This is not a ticket channel.", true)
		return
	case errors.Is(err, ErrPermissionDenied):
		respond(s, i, lang.T("ticket_claim_denied"), true)
		return
	case errors.Is(err, ErrAlreadyClaimed):
		respond(s, i, fmt.Sprintf("Already claimed by <@%s>.", claimed.ClaimedBy), true)
		return
	}

	respond(s, i, fmt.Sprintf("🙋 Ticket claimed by <@%s>.", i.Member.User.ID), false)

	sendDMQuiet(s, claimed.UserID, lang.T("ticket_claimed_dm",
		"staff", i.Member.User.Username,
		"channel", fmt.Sprintf("<#%s>", i.ChannelID)))
}

func (t *TicketSystem) HandleCloseButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ticket, ok := t.state.Ticket(i.ChannelID)
	if !ok {
		respond(s, i, "This is not a ticket channel.", true)
		return
	}

	if !t.canClose(i, ticket) {
		respond(s, i, lang.T("ticket_close_denied"), true)
		return
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Are you sure you want to close this ticket?",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{Label: "Confirm Close", Style: discordgo.DangerButton, CustomID: "ticket-close-confirm"},
						discordgo.Button{Label: "Cancel", Style: discordgo.SecondaryButton, CustomID: "ticket-close-cancel"},
					},
				},
			},
		},
	})
}

func (t *TicketSystem) HandleCloseConfirm(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ticket, ok := t.state.Ticket(i.ChannelID)
	if !ok {
		respond(s, i, "Ticket not found.", true)
		return
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: "🔒 Closing ticket...", Components: []discordgo.MessageComponent{}},
	})

	t.CloseTicket(s, ticket, i.Member.User.ID, storage.StatusStaffClosed,
		fmt.Sprintf("closed by %s", i.Member.User.Username))
}

func (t *TicketSystem) HandleCloseCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: "Ticket close cancelled.", Components: []discordgo.MessageComponent{}},
	})
}

func (t *TicketSystem) canClose(i *discordgo.InteractionCreate, ticket storage.Ticket) bool {
	if i.Member.User.ID == ticket.UserID {
		return true
	}
	return isAdmin(i) || hasAnyRole(i.Member, ticket.CloseRoles)
}

// CloseTicket runs the full close path. Removing the ticket from state first
// makes it idempotent: whoever removes it does the side effects, everyone
// else finds nothing to do.
func (t *TicketSystem) CloseTicket(s *discordgo.Session, ticket storage.Ticket, closedBy, status, reason string) {
	if !t.state.RemoveTicket(ticket.ChannelID) {
		return
	}
	now := time.Now()
	t.archive(ticket, status, reason, now)
	_ = t.state.Save()

	sendDMQuiet(s, ticket.UserID, lang.T("ticket_closed_dm", "reason", reason))

	desc := fmt.Sprintf("Reason: %s", reason)
	if closedBy != "" {
		desc = fmt.Sprintf("Closed by <@%s>.\nReason: %s", closedBy, reason)
	}
	_, _ = s.ChannelMessageSendEmbed(ticket.ChannelID, &discordgo.MessageEmbed{
		Title:       "Ticket Closed",
		Description: desc + "\n\nThis channel will be deleted shortly.",
		Color:       0xED4245,
		Timestamp:   now.Format(time.RFC3339),
	})

	grace := time.Duration(t.cfg.Tickets.GraceSeconds) * time.Second
	channelID := ticket.ChannelID
	time.AfterFunc(grace, func() {
		if _, err := s.ChannelDelete(channelID); err != nil {
			log.Printf("[Ticket] Failed to delete channel %s: %v", channelID, err)
		}
	})

	log.Printf("[Ticket] Closed %s (%s: %s)", ticket.ChannelID, status, reason)
}

func (t *TicketSystem) archive(ticket storage.Ticket, status, reason string, closedAt time.Time) {
	err := t.history.ArchiveTicket(storage.HistoryEntry{
		TicketID:  ticket.ChannelID,
		UserID:    ticket.UserID,
		Username:  ticket.Username,
		Category:  ticket.Category,
		CreatedAt: ticket.CreatedAt,
		ClosedAt:  closedAt,
		Reason:    reason,
		Status:    status,
	})
	if err != nil {
		log.Printf("[Ticket] Failed to archive %s: %v", ticket.ChannelID, err)
	}
}

// NoteActivity bumps the inactivity clock for ticket channels and tears down
// any pending alert, returning the ticket to the active state.
func (t *TicketSystem) NoteActivity(s *discordgo.Session, channelID string) {
	prevAlert, ok := t.state.TouchTicket(channelID, time.Now())
	if !ok {
		return
	}
	if prevAlert != "" {
		_ = s.ChannelMessageDelete(channelID, prevAlert)
	}
}

// HandleChannelDelete archives tickets whose channel was deleted out from
// under the bot.
func (t *TicketSystem) HandleChannelDelete(s *discordgo.Session, c *discordgo.ChannelDelete) {
	ticket, ok := t.state.Ticket(c.ID)
	if !ok {
		return
	}
	if !t.state.RemoveTicket(c.ID) {
		return
	}
	t.archive(ticket, storage.StatusChannelDeleted, "channel deleted manually", time.Now())
	_ = t.state.Save()
	log.Printf("[Ticket] Channel %s deleted externally, archived", c.ID)
}

func (t *TicketSystem) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return
	}

	switch opts[0].Name {
	case "add":
		t.handleAddUser(s, i, opts[0].Options)
	case "close":
		t.handleCloseCommand(s, i, opts[0].Options)
	case "status":
		t.handleStatusCommand(s, i)
	}
}

func (t *TicketSystem) handleAddUser(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	ticket, ok := t.state.Ticket(i.ChannelID)
	if !ok {
		respond(s, i, "This is not a ticket channel.", true)
		return
	}
	if i.Member.User.ID != ticket.UserID && !isAdmin(i) && !hasAnyRole(i.Member, ticket.ClaimRoles) {
		respond(s, i, "Only the ticket opener or staff can add people.", true)
		return
	}

	m := subOptMap(opts)
	target := m["user"].UserValue(s)

	err := s.ChannelPermissionSet(i.ChannelID, target.ID, discordgo.PermissionOverwriteTypeMember,
		discordgo.PermissionViewChannel|discordgo.PermissionSendMessages|discordgo.PermissionReadMessageHistory, 0)
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Added <@%s> to the ticket.", target.ID), false)
}

func (t *TicketSystem) handleCloseCommand(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	ticket, ok := t.state.Ticket(i.ChannelID)
	if !ok {
		respond(s, i, "This is not a ticket channel.", true)
		return
	}
	if !t.canClose(i, ticket) {
		respond(s, i, lang.T("ticket_close_denied"), true)
		return
	}

	reason := optStr(subOptMap(opts), "reason", "")
	if reason == "" {
		reason = fmt.Sprintf("closed by %s", i.Member.User.Username)
	}

	respond(s, i, "🔒 Closing ticket...", false)
	t.CloseTicket(s, ticket, i.Member.User.ID, storage.StatusStaffClosed, reason)
}

func (t *TicketSystem) handleStatusCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ticket, ok := t.state.Ticket(i.ChannelID)
	if !ok {
		respond(s, i, "This is not a ticket channel.", true)
		return
	}

	cat := categoryByID(ticket.Category)
	claimedVal := "Unclaimed"
	if ticket.Claimed {
		claimedVal = fmt.Sprintf("<@%s> (<t:%d:R>)", ticket.ClaimedBy, ticket.ClaimedAt.Unix())
	}

	embed := &discordgo.MessageEmbed{
		Title: "Ticket Status",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Category", Value: cat.Emoji + " " + cat.Label, Inline: true},
			{Name: "Opened By", Value: fmt.Sprintf("<@%s>", ticket.UserID), Inline: true},
			{Name: "Opened", Value: fmt.Sprintf("<t:%d:R>", ticket.CreatedAt.Unix()), Inline: true},
			{Name: "Claimed", Value: claimedVal, Inline: true},
			{Name: "Last Activity", Value: fmt.Sprintf("<t:%d:R>", ticket.LastActivity.Unix()), Inline: true},
		},
	}
	respondEmbed(s, i, embed, true)
}

// sessionGateway adapts a live discordgo session to the watcher's gateway.
type sessionGateway struct {
	sys     *TicketSystem
	session *discordgo.Session
}

func (g *sessionGateway) ChannelExists(channelID string) bool {
	return !channelGone(g.session, channelID)
}

func (g *sessionGateway) SendAlert(t storage.Ticket, deadline time.Time) (string, error) {
	msg, err := g.session.ChannelMessageSendComplex(t.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", t.UserID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "⏰ Inactivity Warning",
			Description: fmt.Sprintf("This ticket has been quiet for a while. It will be closed automatically <t:%d:R> unless someone replies.", deadline.Unix()),
			Color:       0xFEE75C,
		}},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *sessionGateway) AutoClose(t storage.Ticket) {
	g.sys.CloseTicket(g.session, t, "", storage.StatusInactivity, "closed automatically due to inactivity")
}

// channelGone reports whether the channel definitively no longer exists. A
// transient API failure is not proof of deletion, so only a 404 counts;
// anything else assumes the channel is still there.
func channelGone(s *discordgo.Session, channelID string) bool {
	if ch, err := s.State.Channel(channelID); err == nil && ch != nil {
		return false
	}
	_, err := s.Channel(channelID)
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == 404 {
		return true
	}
	return false
}

// sendDMQuiet DMs a user and swallows the "cannot message this user" error.
// Closed DMs are normal and should not spam the log.
func sendDMQuiet(s *discordgo.Session, userID, content string) {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		return
	}
	_, err = s.ChannelMessageSend(ch.ID, content)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Message != nil &&
			restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
			return
		}
		log.Printf("[Ticket] Failed to DM %s: %v", userID, err)
	}
}
