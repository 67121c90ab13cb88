package handlers

import (
	"log"
	"math/rand"
	"time"

	"smp-bot/config"
	"smp-bot/lang"
	"smp-bot/storage"

	"github.com/bwmarrin/discordgo"
)

// GreetingScheduler posts a scheduled message per configured slot, once per
// local day. Slots are checked every minute against the configured timezone;
// the sent set clears when the local date rolls over. The same loop sweeps
// expired whitelist confirmations since it already wakes up every minute.
type GreetingScheduler struct {
	cfg      *config.Config
	requests storage.RequestStore
	stop     chan struct{}

	loc       *time.Location
	sentDate  string
	sentSlots map[string]bool
}

func NewGreetingScheduler(cfg *config.Config, requests storage.RequestStore) *GreetingScheduler {
	loc, err := time.LoadLocation(cfg.Greetings.Timezone)
	if err != nil {
		log.Printf("[Greetings] Bad timezone %q, using UTC: %v", cfg.Greetings.Timezone, err)
		loc = time.UTC
	}
	return &GreetingScheduler{
		cfg:       cfg,
		requests:  requests,
		loc:       loc,
		sentSlots: make(map[string]bool),
	}
}

func (g *GreetingScheduler) Start(s *discordgo.Session) {
	g.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.tick(s, time.Now())
			case <-g.stop:
				return
			}
		}
	}()
	log.Printf("[Greetings] Scheduler running (%d slots, %s)", len(g.cfg.Greetings.Slots), g.loc)
}

func (g *GreetingScheduler) Stop() {
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
}

func (g *GreetingScheduler) tick(s *discordgo.Session, now time.Time) {
	local := now.In(g.loc)
	date := local.Format("2006-01-02")
	if date != g.sentDate {
		g.sentDate = date
		g.sentSlots = make(map[string]bool)
	}

	for _, slot := range g.cfg.Greetings.Slots {
		if g.sentSlots[slot.Key] {
			continue
		}
		if local.Hour() != slot.Hour || local.Minute() != slot.Minute {
			continue
		}
		g.sentSlots[slot.Key] = true
		g.send(s, slot.Key)
	}

	if err := g.requests.ExpireTemp(now); err != nil {
		log.Printf("[Greetings] Failed to expire stale whitelist requests: %v", err)
	}
}

func (g *GreetingScheduler) send(s *discordgo.Session, slotKey string) {
	choices := lang.Choices("greeting_" + slotKey)
	msg := ""
	if len(choices) > 0 {
		msg = choices[rand.Intn(len(choices))]
	} else {
		msg = lang.T("greeting_fallback", "slot", slotKey)
	}

	if _, err := s.ChannelMessageSend(g.cfg.Greetings.Channel, msg); err != nil {
		log.Printf("[Greetings] Failed to send %s greeting: %v", slotKey, err)
	}
}

var presenceActivities = []string{
	"the SMP server",
	"over open tickets",
	"the counting channel",
	"whitelist requests",
}

// startPresenceRotator cycles the bot's watching status until the returned
// channel is closed.
func startPresenceRotator(s *discordgo.Session) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		idx := 0
		for {
			activity := presenceActivities[idx%len(presenceActivities)]
			err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
				Activities: []*discordgo.Activity{{
					Name: activity,
					Type: discordgo.ActivityTypeWatching,
				}},
				Status: string(discordgo.StatusOnline),
			})
			if err != nil {
				log.Printf("[Presence] Failed to update: %v", err)
			}
			idx++
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
	return stop
}
