package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"smp-bot/config"
	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

const commandCooldown = 5 * time.Second

// Hub owns every feature component and routes gateway events to them. All
// feature state lives on the components themselves, never in package
// globals, so the whole thing tears down cleanly and tests can build a Hub
// per case.
type Hub struct {
	cfg      *config.Config
	state    *storage.State
	history  storage.Database
	requests storage.RequestStore

	tickets    *TicketSystem
	whitelist  *WhitelistSystem
	counting   *CountingGame
	antiping   *AntiPing
	autodelete *AutoDelete
	status     *StatusUpdater
	greetings  *GreetingScheduler

	cooldowns    *CooldownTracker
	presenceStop chan struct{}
}

func NewHub(cfg *config.Config, state *storage.State, history storage.Database, requests storage.RequestStore) *Hub {
	h := &Hub{
		cfg:       cfg,
		state:     state,
		history:   history,
		requests:  requests,
		cooldowns: NewCooldownTracker(),
	}
	h.tickets = NewTicketSystem(cfg, state, history)
	h.whitelist = NewWhitelistSystem(cfg, state, requests)
	h.counting = NewCountingGame(cfg, state)
	h.antiping = NewAntiPing(cfg)
	h.autodelete = NewAutoDelete(cfg)
	h.status = NewStatusUpdater(cfg, state)
	h.greetings = NewGreetingScheduler(cfg, requests)
	return h
}

// Commands builds the slash command set. Disabled features contribute no
// commands so the guild's command list stays honest.
func Commands(cfg *config.Config) []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0)
	cmds = append(cmds, utilityCommands()...)
	cmds = append(cmds, apiCommands(cfg)...)
	cmds = append(cmds, minecraftCommands()...)
	if cfg.Tickets.Enabled {
		cmds = append(cmds, ticketCommands()...)
	}
	if cfg.Whitelist.Enabled {
		cmds = append(cmds, whitelistCommands()...)
	}
	if cfg.Status.Enabled {
		cmds = append(cmds, statusCommands()...)
	}
	return cmds
}

func (h *Hub) Register(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID == "" {
			return
		}

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			h.handleSlashCommand(s, i)
		case discordgo.InteractionMessageComponent:
			h.handleComponent(s, i)
		case discordgo.InteractionModalSubmit:
			h.handleModal(s, i)
		}
	})

	s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		h.handleMessage(s, m)
	})

	s.AddHandler(func(s *discordgo.Session, c *discordgo.ChannelDelete) {
		h.tickets.HandleChannelDelete(s, c)
	})
}

// Start restores persisted state and launches the background loops. Call
// after the session is open.
func (h *Hub) Start(s *discordgo.Session) {
	if h.cfg.Tickets.Enabled {
		h.tickets.RestoreTickets(s)
		h.tickets.PostMenu(s)
		h.tickets.StartWatcher(s)
		h.tickets.StartMenuRefresher(s)
	}
	if h.cfg.Status.Enabled {
		h.status.Start(s)
	}
	if h.cfg.Greetings.Enabled {
		h.greetings.Start(s)
	}
	h.presenceStop = startPresenceRotator(s)
}

func (h *Hub) Stop() {
	h.tickets.StopWatcher()
	h.tickets.StopMenuRefresher()
	h.status.Stop()
	h.greetings.Stop()
	if h.presenceStop != nil {
		close(h.presenceStop)
		h.presenceStop = nil
	}
}

func (h *Hub) handleSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	userID := i.Member.User.ID

	key := name + ":" + userID
	if wait := h.cooldowns.Remaining(key, time.Now()); wait > 0 {
		respond(s, i, fmt.Sprintf("⏳ Slow down! Try again in %d seconds.", int(wait.Seconds())+1), true)
		return
	}
	h.cooldowns.Set(key, commandCooldown, time.Now())

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Commands] Panic in /%s: %v", name, r)
			respond(s, i, "Sorry, something went wrong running that command.", true)
		}
	}()

	switch name {
	case "say":
		h.handleSay(s, i)
	case "rules":
		h.handleRules(s, i)
	case "suggestion":
		h.handleSuggestion(s, i)
	case "time":
		h.handleTime(s, i)

	case "iplookup":
		h.handleIPLookup(s, i)
	case "sms":
		h.handleSMS(s, i)

	case "lookup":
		h.handleLookup(s, i)
	case "achievement":
		h.handleAchievement(s, i)

	case "status":
		h.status.HandleCommand(s, i)

	case "ticket":
		h.tickets.HandleCommand(s, i)
	case "tickethistory":
		h.handleTicketHistory(s, i)

	case "whitelistreset":
		h.whitelist.HandleReset(s, i)

	default:
		log.Printf("[Commands] Unknown command: %s", name)
	}
}

func (h *Hub) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	switch {
	case customID == "ticket-menu":
		h.tickets.HandleMenuSelect(s, i)
	case customID == "ticket-claim":
		h.tickets.HandleClaimButton(s, i)
	case customID == "ticket-close":
		h.tickets.HandleCloseButton(s, i)
	case customID == "ticket-close-confirm":
		h.tickets.HandleCloseConfirm(s, i)
	case customID == "ticket-close-cancel":
		h.tickets.HandleCloseCancel(s, i)

	case strings.HasPrefix(customID, "whitelist_confirm_"):
		h.whitelist.HandleConfirmButton(s, i)
	case strings.HasPrefix(customID, "whitelist_cancel_"):
		h.whitelist.HandleCancelButton(s, i)
	case strings.HasPrefix(customID, "whitelist_accept_"):
		h.whitelist.HandleAcceptButton(s, i)
	case strings.HasPrefix(customID, "whitelist_deny_"):
		h.whitelist.HandleDenyButton(s, i)

	default:
		log.Printf("[Commands] Unknown component: %s", customID)
	}
}

func (h *Hub) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID
	if strings.HasPrefix(customID, "ticket-modal:") {
		h.tickets.HandleModalSubmit(s, i)
		return
	}
	log.Printf("[Commands] Unknown modal: %s", customID)
}

func (h *Hub) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	if h.autodelete.Handle(s, m) {
		return
	}

	if h.cfg.AntiPing.Enabled && h.antiping.Handle(s, m) {
		return
	}

	if h.cfg.Counting.Enabled && m.ChannelID == h.cfg.Counting.Channel {
		h.counting.Handle(s, m)
		return
	}

	if h.cfg.Whitelist.Enabled && m.ChannelID == h.cfg.Whitelist.Channel {
		h.whitelist.HandleMessage(s, m)
		return
	}

	if h.cfg.Tickets.Enabled {
		h.tickets.NoteActivity(s, m.ChannelID)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		log.Printf("Failed to respond: %v", err)
	}
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
}

func followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		m[opt.Name] = opt
	}
	return m
}

func subOptMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func optStr(m map[string]*discordgo.ApplicationCommandInteractionDataOption, key, def string) string {
	if o, ok := m[key]; ok {
		return o.StringValue()
	}
	return def
}

func hasAnyRole(member *discordgo.Member, roleIDs []string) bool {
	if member == nil {
		return false
	}
	want := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		want[id] = true
	}
	for _, id := range member.Roles {
		if want[id] {
			return true
		}
	}
	return false
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}
