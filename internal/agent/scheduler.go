package agent

import (
	"context"
	"log"
	"time"

	"github.com/rahul/secagent/internal/store"
)

// Messenger pushes unsolicited messages to a chat.
type Messenger interface {
	Send(chatID string, text string) error
}

// WatchStore is the slice of the history store the scheduler polls.
type WatchStore interface {
	GetPendingWatches() ([]store.Watch, error)
	UpdateWatchLastRun(id int) error
	DeleteWatch(id int) error
}

// Scheduler re-runs stored filing watches on their interval and pushes
// the answers to the originating chat.
type Scheduler struct {
	Brain    Brain
	Store    WatchStore
	Gateway  Messenger
	Interval time.Duration
}

func NewScheduler(brain Brain, watches WatchStore, gateway Messenger) *Scheduler {
	return &Scheduler{
		Brain:    brain,
		Store:    watches,
		Gateway:  gateway,
		Interval: 30 * time.Second,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Println("Filing watch scheduler started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollAndExecute(ctx)
		}
	}
}

func (s *Scheduler) pollAndExecute(ctx context.Context) {
	watches, err := s.Store.GetPendingWatches()
	if err != nil {
		log.Printf("Error polling watches: %v", err)
		return
	}

	for _, w := range watches {
		log.Printf("Running watch %d for chat %s: %s", w.ID, w.ChatID, w.Query)

		response, err := s.Brain.Think(ctx, w.ChatID, w.Query)
		if err != nil {
			log.Printf("Error running watch %d: %v", w.ID, err)
			continue
		}

		if err := s.Store.UpdateWatchLastRun(w.ID); err != nil {
			log.Printf("Error updating last run for watch %d: %v", w.ID, err)
		}

		if w.OneTime {
			if err := s.Store.DeleteWatch(w.ID); err != nil {
				log.Printf("Error deleting one-time watch %d: %v", w.ID, err)
			}
		}

		if s.Gateway != nil {
			s.Gateway.Send(w.ChatID, "📊 *Filing Watch Update*\n\n"+response)
		}
	}
}
