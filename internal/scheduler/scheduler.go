package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = time.Minute

// Reloader re-reads configuration; *config.Store satisfies it.
type Reloader interface {
	Reload() error
}

// Scheduler periodically reloads the bot configuration. It backs up the
// file watcher on filesystems that do not deliver change events.
type Scheduler struct {
	scheduler *gocron.Scheduler
	reloader  Reloader
	interval  time.Duration
}

// New creates a new Scheduler.
func New(reloader Reloader, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		reloader:  reloader,
		interval:  interval,
	}
}

// Start schedules the reload job and starts the underlying scheduler. The
// first run happens one interval after Start.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		if err := s.reloader.Reload(); err != nil {
			log.Printf("scheduler: config reload failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("scheduler: reloading config every %s", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
