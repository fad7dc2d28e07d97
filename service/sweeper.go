package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sparksclub/walletauth/internal/metrics"
)

// Sweepable is a store that can drop its expired entries
type Sweepable interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper periodically removes expired challenges so abandoned logins do not pile up
type Sweeper struct {
	cron    *cron.Cron
	stores  []Sweepable
	timeout time.Duration
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewSweeper schedules a sweep of stores every interval
func NewSweeper(interval time.Duration, log logrus.FieldLogger, m *metrics.Metrics, stores ...Sweepable) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	s := &Sweeper{
		cron:    cron.New(),
		stores:  stores,
		timeout: interval,
		log:     log,
		metrics: m,
	}

	schedule := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to schedule sweeper: %w", err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep runs one pass over every store and returns the number of removed entries
func (s *Sweeper) Sweep(ctx context.Context) int {
	total := 0
	for _, st := range s.stores {
		n, err := st.SweepExpired(ctx)
		if err != nil {
			s.log.WithError(err).Error("failed to sweep expired entries")
			continue
		}
		total += n
	}

	if s.metrics != nil {
		s.metrics.ChallengesSwept(total)
	}
	if total > 0 {
		s.log.WithField("removed", total).Debug("expired entries swept")
	}
	return total
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.Sweep(ctx)
}
