// Package tasks runs the periodic queue jobs.
package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	// a few seconds past midnight so the clinic day has already changed
	DayRolloverSpec = "5 0 0 * * *"
	ResyncSpec      = "0 */5 * * * *"

	jobTimeout = time.Minute
)

// Republisher pushes the current snapshot of a doctor's queue to watchers.
type Republisher interface {
	Republish(ctx context.Context, doctorID uint)
}

// WatchSource lists the doctors that currently have watchers.
type WatchSource interface {
	WatchedDoctors() []uint
}

// Planner rebroadcasts watched queues: right after midnight so watchers move
// to the new day's empty queue, and every few minutes so clients that missed
// a dropped message converge.
type Planner struct {
	cron    *cron.Cron
	queues  Republisher
	watched WatchSource
	log     zerolog.Logger
}

func NewPlanner(queues Republisher, watched WatchSource, loc *time.Location, logger zerolog.Logger) *Planner {
	if loc == nil {
		loc = time.Local
	}
	return &Planner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		queues:  queues,
		watched: watched,
		log:     logger.With().Str("component", "tasks").Logger(),
	}
}

// Start registers the jobs and starts the scheduler.
func (p *Planner) Start() error {
	if _, err := p.cron.AddFunc(DayRolloverSpec, func() { p.run("day_rollover") }); err != nil {
		return err
	}
	if _, err := p.cron.AddFunc(ResyncSpec, func() { p.run("resync") }); err != nil {
		return err
	}
	p.cron.Start()
	p.log.Info().Msg("cron scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (p *Planner) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
		p.log.Warn().Msg("cron jobs still running at shutdown")
	}
}

func (p *Planner) run(job string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n := p.RebroadcastWatched(ctx)
	p.log.Debug().Str("job", job).Int("doctors", n).Msg("queues rebroadcast")
}

// RebroadcastWatched republishes every watched doctor's queue and returns how
// many were pushed.
func (p *Planner) RebroadcastWatched(ctx context.Context) int {
	doctors := p.watched.WatchedDoctors()
	for i, id := range doctors {
		if ctx.Err() != nil {
			return i
		}
		p.queues.Republish(ctx, id)
	}
	return len(doctors)
}
