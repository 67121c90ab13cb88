package handlers

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"smp-bot/config"
	"smp-bot/lang"
	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

var gamertagPattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,16}$`)

// ExtractGamertag pulls a gamertag and platform out of a whitelist request
// message. The message must name its edition ("java" or "bedrock", any case);
// the platform comes back normalized as "Java" or "Bedrock". The remaining
// words are joined with underscores, so "bedrock Cool Guy 42" becomes
// "Cool_Guy_42". Underscores inside words survive, dashes split.
func ExtractGamertag(content string) (tag, platform string, ok bool) {
	tokens := strings.FieldsFunc(content, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '-'
	})

	var parts []string
	for _, tok := range tokens {
		switch strings.ToLower(tok) {
		case "java":
			if platform == "" {
				platform = "Java"
			}
		case "bedrock":
			if platform == "" {
				platform = "Bedrock"
			}
		default:
			parts = append(parts, tok)
		}
	}

	if platform == "" || len(parts) == 0 {
		return "", "", false
	}

	tag = strings.Join(parts, "_")
	if !gamertagPattern.MatchString(tag) {
		return "", "", false
	}
	return tag, platform, true
}

// WhitelistSystem runs the whitelist intake flow: a user posts their
// gamertag, confirms it, staff accept or deny, and denial is permanent until
// a staff member resets it.
type WhitelistSystem struct {
	cfg       *config.Config
	state     *storage.State
	store     storage.RequestStore
	cooldowns *CooldownTracker
}

func NewWhitelistSystem(cfg *config.Config, state *storage.State, store storage.RequestStore) *WhitelistSystem {
	return &WhitelistSystem{
		cfg:       cfg,
		state:     state,
		store:     store,
		cooldowns: NewCooldownTracker(),
	}
}

func whitelistCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "whitelistreset",
			Description: "Clear a user's whitelist block and cooldown",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to reset", Required: true},
			},
		},
	}
}

func cooldownKey(userID string) string { return "whitelist:" + userID }

// Submit records a new unconfirmed request. It enforces the blacklist, the
// per-user cooldown, and the one-pending-request rule, in that order.
func (w *WhitelistSystem) Submit(userID, username, tag, platform string, now time.Time) error {
	if w.state.IsBlocked(userID) {
		return ErrAlreadyBlocked
	}
	if wait := w.cooldowns.Remaining(cooldownKey(userID), now); wait > 0 {
		return &CooldownActiveError{Remaining: wait}
	}

	keys, err := w.store.KeysForUser(userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		req, ok, err := w.store.Get(k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		// An unconfirmed request past its TTL no longer counts as pending.
		// The scheduler sweeps these too, but Submit must not depend on it.
		if req.Status == storage.RequestPendingConfirmation &&
			!req.ExpiresAt.IsZero() && now.After(req.ExpiresAt) {
			_ = w.store.Delete(k)
			continue
		}
		return ErrRequestPending
	}

	ttl := time.Duration(w.cfg.Whitelist.ConfirmTTLMinutes) * time.Minute
	return w.store.Put(storage.TempKey(userID, tag), storage.Request{
		Gamertag:    tag,
		Platform:    platform,
		UserID:      userID,
		Username:    username,
		RequestedAt: now,
		ExpiresAt:   now.Add(ttl),
		Status:      storage.RequestPendingConfirmation,
	})
}

// Confirm promotes a temp request to a pending one, starts the cooldown, and
// returns the confirmed request. Expired temp entries count as gone.
func (w *WhitelistSystem) Confirm(userID, tag string, now time.Time) (storage.Request, error) {
	key := storage.TempKey(userID, tag)
	req, ok, err := w.store.Get(key)
	if err != nil {
		return storage.Request{}, err
	}
	if !ok || (!req.ExpiresAt.IsZero() && now.After(req.ExpiresAt)) {
		_ = w.store.Delete(key)
		return storage.Request{}, fmt.Errorf("request for %s expired, please post your gamertag again", tag)
	}

	if err := w.store.Delete(key); err != nil {
		return storage.Request{}, err
	}

	req.Status = storage.RequestPending
	req.ConfirmedAt = now
	req.ExpiresAt = time.Time{}
	if err := w.store.Put(tag, req); err != nil {
		return storage.Request{}, err
	}

	cooldown := time.Duration(w.cfg.Whitelist.CooldownHours) * time.Hour
	w.cooldowns.Set(cooldownKey(userID), cooldown, now)
	return req, nil
}

func (w *WhitelistSystem) Cancel(userID, tag string) error {
	return w.store.Delete(storage.TempKey(userID, tag))
}

// Approve removes the pending request and returns it so the caller can grant
// the role and notify the user.
func (w *WhitelistSystem) Approve(tag string) (storage.Request, error) {
	req, ok, err := w.store.Get(tag)
	if err != nil {
		return storage.Request{}, err
	}
	if !ok {
		return storage.Request{}, fmt.Errorf("no pending request for %s", tag)
	}
	return req, w.store.Delete(tag)
}

// Deny removes every request the user has and blocks them from submitting
// again. The block persists until a staff reset.
func (w *WhitelistSystem) Deny(tag string) (storage.Request, error) {
	req, ok, err := w.store.Get(tag)
	if err != nil {
		return storage.Request{}, err
	}
	if !ok {
		return storage.Request{}, fmt.Errorf("no pending request for %s", tag)
	}

	keys, err := w.store.KeysForUser(req.UserID)
	if err != nil {
		return storage.Request{}, err
	}
	for _, k := range keys {
		_ = w.store.Delete(k)
	}

	w.state.Block(req.UserID)
	_ = w.state.Save()
	return req, nil
}

// Reset clears a user's block, cooldown, and any stored requests. Reports
// whether anything was actually cleared.
func (w *WhitelistSystem) Reset(userID string) (bool, error) {
	cleared := w.state.Unblock(userID)
	if cleared {
		_ = w.state.Save()
	}

	if w.cooldowns.Remaining(cooldownKey(userID), time.Now()) > 0 {
		cleared = true
	}
	w.cooldowns.Clear(cooldownKey(userID))

	keys, err := w.store.KeysForUser(userID)
	if err != nil {
		return cleared, err
	}
	for _, k := range keys {
		_ = w.store.Delete(k)
		cleared = true
	}
	return cleared, nil
}

func (w *WhitelistSystem) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	tag, platform, ok := ExtractGamertag(m.Content)
	if !ok {
		reply, _ := s.ChannelMessageSendReply(m.ChannelID, lang.T("whitelist_format_hint"), m.Reference())
		if reply != nil {
			time.AfterFunc(15*time.Second, func() {
				_ = s.ChannelMessageDelete(m.ChannelID, reply.ID)
			})
		}
		return
	}

	err := w.Submit(m.Author.ID, m.Author.Username, tag, platform, time.Now())
	if err != nil {
		var cd *CooldownActiveError
		switch {
		case errors.Is(err, ErrAlreadyBlocked):
			_, _ = s.ChannelMessageSendReply(m.ChannelID, lang.T("whitelist_blocked"), m.Reference())
		case errors.Is(err, ErrRequestPending):
			_, _ = s.ChannelMessageSendReply(m.ChannelID, lang.T("whitelist_pending"), m.Reference())
		case errors.As(err, &cd):
			hours := int(cd.Remaining.Hours()) + 1
			_, _ = s.ChannelMessageSendReply(m.ChannelID,
				lang.T("whitelist_cooldown", "hours", fmt.Sprintf("%d", hours)), m.Reference())
		default:
			log.Printf("[Whitelist] Submit failed for %s: %v", m.Author.ID, err)
		}
		return
	}

	// Tidy the intake channel: the raw gamertag post goes away a moment
	// after the request is recorded.
	msgID := m.ID
	time.AfterFunc(time.Second, func() {
		_ = s.ChannelMessageDelete(m.ChannelID, msgID)
	})

	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   lang.T("whitelist_confirm_prompt", "user", m.Author.Mention(), "tag", tag, "platform", platform),
		Reference: m.Reference(),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Confirm", Style: discordgo.SuccessButton,
						CustomID: fmt.Sprintf("whitelist_confirm_%s_%s", tag, m.Author.ID),
					},
					discordgo.Button{
						Label: "Cancel", Style: discordgo.SecondaryButton,
						CustomID: fmt.Sprintf("whitelist_cancel_%s_%s", tag, m.Author.ID),
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("[Whitelist] Failed to send confirm prompt: %v", err)
	}
}

// parseTagUser splits "whitelist_confirm_<tag>_<userID>" style IDs. The user
// ID is the last segment; the tag may itself contain underscores.
func parseTagUser(customID, prefix string) (tag, userID string, ok bool) {
	rest := strings.TrimPrefix(customID, prefix)
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func (w *WhitelistSystem) HandleConfirmButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	tag, userID, ok := parseTagUser(i.MessageComponentData().CustomID, "whitelist_confirm_")
	if !ok {
		return
	}
	if i.Member.User.ID != userID {
		respond(s, i, "Only the requester can confirm this.", true)
		return
	}

	req, err := w.Confirm(userID, tag, time.Now())
	if err != nil {
		respond(s, i, err.Error(), true)
		return
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    lang.T("whitelist_confirmed", "tag", tag),
			Components: []discordgo.MessageComponent{},
		},
	})

	w.postStaffReview(s, req)
}

func (w *WhitelistSystem) HandleCancelButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	tag, userID, ok := parseTagUser(i.MessageComponentData().CustomID, "whitelist_cancel_")
	if !ok {
		return
	}
	if i.Member.User.ID != userID {
		respond(s, i, "Only the requester can cancel this.", true)
		return
	}

	_ = w.Cancel(userID, tag)
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    lang.T("whitelist_cancelled"),
			Components: []discordgo.MessageComponent{},
		},
	})
}

func (w *WhitelistSystem) postStaffReview(s *discordgo.Session, req storage.Request) {
	chID := w.cfg.Whitelist.StaffChannel
	if chID == "" {
		return
	}

	content := ""
	if w.cfg.Whitelist.StaffRole != "" {
		content = fmt.Sprintf("<@&%s>", w.cfg.Whitelist.StaffRole)
	}

	msg, err := s.ChannelMessageSendComplex(chID, &discordgo.MessageSend{
		Content: content,
		Embeds: []*discordgo.MessageEmbed{{
			Title: "Whitelist Request",
			Color: 0x5865F2,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Gamertag", Value: "`" + req.Gamertag + "`", Inline: true},
				{Name: "Edition", Value: req.Platform, Inline: true},
				{Name: "Requested By", Value: fmt.Sprintf("<@%s>", req.UserID), Inline: true},
			},
			Timestamp: req.ConfirmedAt.Format(time.RFC3339),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Accept", Style: discordgo.SuccessButton,
						CustomID: "whitelist_accept_" + req.Gamertag,
					},
					discordgo.Button{
						Label: "Deny", Style: discordgo.DangerButton,
						CustomID: "whitelist_deny_" + req.Gamertag,
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("[Whitelist] Failed to post staff review for %s: %v", req.Gamertag, err)
		return
	}

	req.StaffMessageID = msg.ID
	if err := w.store.Put(req.Gamertag, req); err != nil {
		log.Printf("[Whitelist] Failed to store staff message for %s: %v", req.Gamertag, err)
	}
}

func (w *WhitelistSystem) isStaff(i *discordgo.InteractionCreate) bool {
	if isAdmin(i) {
		return true
	}
	if w.cfg.Whitelist.StaffRole == "" {
		return false
	}
	return hasAnyRole(i.Member, []string{w.cfg.Whitelist.StaffRole})
}

func (w *WhitelistSystem) HandleAcceptButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !w.isStaff(i) {
		respond(s, i, "Only staff can review whitelist requests.", true)
		return
	}
	tag := strings.TrimPrefix(i.MessageComponentData().CustomID, "whitelist_accept_")

	req, err := w.Approve(tag)
	if err != nil {
		respond(s, i, err.Error(), true)
		return
	}

	if w.cfg.Whitelist.ApprovedRole != "" {
		if err := s.GuildMemberRoleAdd(i.GuildID, req.UserID, w.cfg.Whitelist.ApprovedRole); err != nil {
			log.Printf("[Whitelist] Failed to grant role to %s: %v", req.UserID, err)
		}
	}
	if w.cfg.Whitelist.NicknamePrefix != "" {
		nick := w.cfg.Whitelist.NicknamePrefix + " - " + req.Gamertag
		if err := s.GuildMemberNickname(i.GuildID, req.UserID, nick); err != nil {
			log.Printf("[Whitelist] Failed to set nickname for %s: %v", req.UserID, err)
		}
	}

	// The public announcement and the personal notification are separate:
	// the content channel always gets the gamertag, the DM may still fail.
	if ch := w.cfg.Whitelist.ContentChannel; ch != "" {
		_, _ = s.ChannelMessageSend(ch,
			lang.T("whitelist_announce", "user", fmt.Sprintf("<@%s>", req.UserID), "tag", req.Gamertag))
	}
	w.notifyUser(s, req.UserID, lang.T("whitelist_approved_dm", "tag", req.Gamertag))

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("✅ `%s` accepted by <@%s>", req.Gamertag, i.Member.User.ID),
			Embeds:     i.Message.Embeds,
			Components: []discordgo.MessageComponent{},
		},
	})
	log.Printf("[Whitelist] %s accepted by %s", req.Gamertag, i.Member.User.Username)
}

func (w *WhitelistSystem) HandleDenyButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !w.isStaff(i) {
		respond(s, i, "Only staff can review whitelist requests.", true)
		return
	}
	tag := strings.TrimPrefix(i.MessageComponentData().CustomID, "whitelist_deny_")

	req, err := w.Deny(tag)
	if err != nil {
		respond(s, i, err.Error(), true)
		return
	}

	w.notifyUser(s, req.UserID, lang.T("whitelist_denied_dm", "tag", req.Gamertag))

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("❌ `%s` denied by <@%s>", req.Gamertag, i.Member.User.ID),
			Embeds:     i.Message.Embeds,
			Components: []discordgo.MessageComponent{},
		},
	})
	log.Printf("[Whitelist] %s denied by %s", req.Gamertag, i.Member.User.Username)
}

func (w *WhitelistSystem) HandleReset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !w.isStaff(i) {
		respond(s, i, "Only staff can reset whitelist state.", true)
		return
	}

	opts := optionMap(i)
	target := opts["user"].UserValue(s)

	cleared, err := w.Reset(target.ID)
	if err != nil {
		respond(s, i, fmt.Sprintf("Reset failed: %v", err), true)
		return
	}
	if !cleared {
		respond(s, i, fmt.Sprintf("<@%s> had nothing to reset.", target.ID), true)
		return
	}
	respond(s, i, fmt.Sprintf("♻️ Cleared whitelist block, cooldown, and requests for <@%s>.", target.ID), true)
}

// notifyUser DMs the user, falling back to a mention in the intake channel
// for users with closed DMs.
func (w *WhitelistSystem) notifyUser(s *discordgo.Session, userID, content string) {
	ch, err := s.UserChannelCreate(userID)
	if err == nil {
		if _, err = s.ChannelMessageSend(ch.ID, content); err == nil {
			return
		}
	}
	if w.cfg.Whitelist.Channel != "" {
		_, _ = s.ChannelMessageSend(w.cfg.Whitelist.Channel,
			fmt.Sprintf("<@%s> %s", userID, content))
	}
}
