package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

const jobTimeout = time.Minute

// Scheduler runs the arena's background jobs.
type Scheduler struct {
	sched gocron.Scheduler
}

func NewScheduler(clock clockwork.Clock) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{sched: sched}, nil
}

// AddOutbox drains the outbox every interval. A round that is still running
// delays the next one.
func (s *Scheduler) AddOutbox(d *Dispatcher, interval time.Duration) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			n, err := d.RunOnce(ctx)
			if err != nil {
				log.Printf("[Outbox] delivered %d effects, then: %v", n, err)
				return
			}
			if n > 0 {
				log.Printf("[Outbox] delivered %d effects", n)
			}
		}),
		gocron.WithName("outbox"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// AddTournamentReset starts a new tournament on the given crontab.
func (s *Scheduler) AddTournamentReset(crontab string, reset func(ctx context.Context) error) error {
	_, err := s.sched.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := reset(ctx); err != nil {
				log.Printf("[Tournament] scheduled reset failed: %v", err)
				return
			}
			log.Printf("[Tournament] new tournament started")
		}),
		gocron.WithName("tournament-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// AddSnapshots archives the ledger on the given crontab.
func (s *Scheduler) AddSnapshots(crontab string, archiver *Archiver) error {
	_, err := s.sched.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := archiver.Archive(ctx); err != nil {
				log.Printf("[Snapshot] %v", err)
			}
		}),
		gocron.WithName("snapshot"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// AddSessionSweep deletes expired login sessions every interval.
func (s *Scheduler) AddSessionSweep(interval time.Duration, sweep func(ctx context.Context) (int64, error)) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			n, err := sweep(ctx)
			if err != nil {
				log.Printf("[Sessions] sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[Sessions] removed %d expired sessions", n)
			}
		}),
		gocron.WithName("session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
