package handlers

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"smp-bot/config"
	"smp-bot/lang"
	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

type countVerdict int

const (
	countNotNumber countVerdict = iota
	countWrongNumber
	countSameUser
	countOK
)

// CountingGame is the one-number-per-message channel game. Progress persists
// across restarts via storage.State.
type CountingGame struct {
	cfg   *config.Config
	state *storage.State
}

func NewCountingGame(cfg *config.Config, state *storage.State) *CountingGame {
	return &CountingGame{cfg: cfg, state: state}
}

// evaluate applies one message to the game and returns what happened. Any
// non-number or wrong number resets the count to zero; a double post by the
// same user is rejected but leaves the count where it is.
func (c *CountingGame) evaluate(content, userID string) (verdict countVerdict, expected int) {
	progress := c.state.CountingProgress()
	expected = progress.Current + 1

	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		c.state.SetCountingProgress(storage.CountingState{})
		return countNotNumber, expected
	}

	if n != expected {
		c.state.SetCountingProgress(storage.CountingState{})
		return countWrongNumber, expected
	}

	if progress.LastUserID == userID && progress.Current > 0 {
		return countSameUser, expected
	}

	c.state.SetCountingProgress(storage.CountingState{Current: n, LastUserID: userID})
	return countOK, expected
}

// sendTransient posts a reply that removes itself after ttl, so game chatter
// never buries the count.
func (c *CountingGame) sendTransient(s *discordgo.Session, channelID, content string, ref *discordgo.MessageReference, ttl time.Duration) {
	msg, err := s.ChannelMessageSendReply(channelID, content, ref)
	if err != nil || msg == nil {
		return
	}
	time.AfterFunc(ttl, func() {
		_ = s.ChannelMessageDelete(channelID, msg.ID)
	})
}

func (c *CountingGame) Handle(s *discordgo.Session, m *discordgo.MessageCreate) {
	verdict, expected := c.evaluate(m.Content, m.Author.ID)
	if err := c.state.Save(); err != nil {
		log.Printf("[Counting] Failed to save state: %v", err)
	}

	switch verdict {
	case countNotNumber:
		_ = s.MessageReactionAdd(m.ChannelID, m.ID, "❌")
		c.sendTransient(s, m.ChannelID,
			lang.T("counting_not_number"), m.Reference(), 6*time.Second)

	case countWrongNumber:
		_ = s.MessageReactionAdd(m.ChannelID, m.ID, "❌")
		c.sendTransient(s, m.ChannelID,
			lang.T("counting_wrong", "expected", fmt.Sprintf("%d", expected)), m.Reference(), 6*time.Second)

	case countSameUser:
		_ = s.MessageReactionAdd(m.ChannelID, m.ID, "❌")
		c.sendTransient(s, m.ChannelID,
			lang.T("counting_same_user", "current", fmt.Sprintf("%d", expected-1)), m.Reference(), 4*time.Second)

	case countOK:
		_ = s.MessageReactionAdd(m.ChannelID, m.ID, "✅")
		if n := expected; n > 0 && n%100 == 0 {
			_, _ = s.ChannelMessageSend(m.ChannelID,
				lang.T("counting_milestone_big", "count", fmt.Sprintf("%d", n)))
		} else if n%50 == 0 {
			_, _ = s.ChannelMessageSend(m.ChannelID,
				lang.T("counting_milestone", "count", fmt.Sprintf("%d", n)))
		}
	}
}
