package push

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/camda/countdown/internal/model"
	"github.com/camda/countdown/internal/store"
	"github.com/camda/countdown/internal/websocket"
)

const (
	// pollInterval is how often the scheduler re-resolves occurrences.
	pollInterval = 5 * time.Second

	// fireSlack keeps the fire window slightly wider than one poll so a
	// reminder is caught exactly once even if a tick lands late.
	fireSlack = 15 * time.Second

	// refireFloor suppresses duplicate fires for the same event within a
	// single fire window.
	refireFloor = 60 * time.Second

	// sentRetention is how long delivered-reminder records are kept.
	sentRetention = 30 * 24 * time.Hour
)

// Scheduler polls notifiable events, resolves each one's next occurrence,
// and fires a reminder when the occurrence enters the event's lead window.
type Scheduler struct {
	mu     sync.RWMutex
	sender Sender
	push   *store.PushStore
	events *store.EventStore
	hub    *websocket.Hub
	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}

	lastFired   map[int64]time.Time
	lastCleanup time.Time
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(sender Sender, pushStore *store.PushStore, eventStore *store.EventStore, hub *websocket.Hub) *Scheduler {
	return &Scheduler{
		sender:    sender,
		push:      pushStore,
		events:    eventStore,
		hub:       hub,
		now:       time.Now,
		lastFired: make(map[int64]time.Time),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := s.now()

	events, err := s.events.ListNotifiable()
	if err != nil {
		log.Printf("push scheduler: list events: %v", err)
		return
	}

	for i := range events {
		s.checkEvent(&events[i], now)
	}

	s.maybeCleanup(now)
}

// checkEvent fires a reminder if the event's next occurrence has entered
// the lead window. The window is (lead-fireSlack, lead] before the
// occurrence; with a zero lead that is the fireSlack seconds right after
// the occurrence, so "at time" reminders still land. The target is the
// completion-independent next occurrence: a recurring event notifies on
// every occurrence whether or not the user marked previous ones done.
func (s *Scheduler) checkEvent(e *model.Event, now time.Time) {
	lead := time.Duration(e.NotifyMinutesBefore) * time.Minute

	target := e.NextOccurrence(now)
	if target.IsZero() {
		return
	}

	diff := target.Sub(now)
	if diff > lead || diff <= lead-fireSlack {
		return
	}

	s.mu.Lock()
	if last, ok := s.lastFired[e.ID]; ok && now.Sub(last) < refireFloor {
		s.mu.Unlock()
		return
	}
	s.lastFired[e.ID] = now
	s.mu.Unlock()

	occurrence := model.FormatLocalTime(target)
	refID := fmt.Sprintf("%d:%s", e.ID, occurrence)

	sent, err := s.push.WasSent(model.NotifTypeEventReminder, refID, e.NotifyMinutesBefore)
	if err != nil {
		log.Printf("push scheduler: check sent: %v", err)
		return
	}
	if sent {
		return
	}

	s.fire(e, target, occurrence)

	if err := s.push.RecordSent(model.NotifTypeEventReminder, refID, e.NotifyMinutesBefore); err != nil {
		log.Printf("push scheduler: record sent: %v", err)
	}
}

func (s *Scheduler) fire(e *model.Event, target time.Time, occurrence string) {
	subs, err := s.push.List()
	if err != nil {
		log.Printf("push scheduler: list subscriptions: %v", err)
		return
	}

	payload := Payload{
		Title: e.Title,
		Body:  reminderBody(e, target, s.now()),
		URL:   "/",
		Tag:   fmt.Sprintf("event-%d", e.ID),
	}

	for i := range subs {
		if err := s.sender.Send(&subs[i], payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(subs[i].Endpoint)
			} else {
				log.Printf("push scheduler: send reminder: %v", err)
			}
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(websocket.ReminderMessage(e.ID, e.Title, occurrence))
	}
}

// reminderBody phrases the time remaining in whole minutes, rounding up
// so "in 30 minutes" never reads "in 29 minutes".
func reminderBody(e *model.Event, target, now time.Time) string {
	minutes := int((target.Sub(now) + time.Minute - 1) / time.Minute)
	if minutes <= 0 {
		return "Starting now"
	}
	if minutes == 1 {
		return "Starting in 1 minute"
	}
	return fmt.Sprintf("Starting in %d minutes", minutes)
}

// maybeCleanup prunes old delivered-reminder records once a day.
func (s *Scheduler) maybeCleanup(now time.Time) {
	s.mu.Lock()
	if now.Sub(s.lastCleanup) < 24*time.Hour {
		s.mu.Unlock()
		return
	}
	s.lastCleanup = now
	s.mu.Unlock()

	if err := s.push.CleanupSent(now.Add(-sentRetention)); err != nil {
		log.Printf("push scheduler: cleanup sent: %v", err)
	}
}
