package service

import (
	"context"
	"sync"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/queue"
)

// Sweeper deletes reservations from previous JST days together with their
// progress rows, so the boards only ever see today onwards.
type Sweeper struct {
	reservations ReservationStore
	events       queue.Sink
	clock        clock.Clock
	log          *logger.Logger

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSweeper wires a Sweeper.
func NewSweeper(reservations ReservationStore, events queue.Sink, c clock.Clock) *Sweeper {
	if events == nil {
		events = queue.Discard{}
	}
	if c == nil {
		c = clock.System{}
	}
	return &Sweeper{
		reservations: reservations,
		events:       events,
		clock:        c,
		log:          logger.New("sweep"),
		stopChan:     make(chan struct{}),
	}
}

// Sweep removes everything booked before 00:00 JST today and returns the
// number of reservations deleted. Today's and future bookings are kept.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := clock.Today(s.clock).Start()
	n, err := s.reservations.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, persistence("sweep", err)
	}
	if n > 0 {
		s.log.Info("removed %d reservations before %s", n, clock.Format(cutoff))
		ev := queue.CourseEvent{Type: queue.ReservationsSwept, Count: n, OccurredAt: clock.Format(s.clock.Now())}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn("publish sweep: %v", err)
		}
	}
	return n, nil
}

// TrySweep runs Sweep and only logs a failure. Board reads call it first.
func (s *Sweeper) TrySweep(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Warn("cleanup failed: %v", err)
	}
}

// Start runs Sweep every interval until Stop is called. A non-positive
// interval disables the background sweep.
func (s *Sweeper) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.log.Info("starting background sweep every %s", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.TrySweep(ctx)
				cancel()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop ends the background sweep.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
