// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/lebot/internal/metrics"
	"github.com/mmynk/lebot/internal/models"
)

// DefaultSnapshotSchedule takes a snapshot every day at midnight UTC.
// The expression has a leading seconds field.
const DefaultSnapshotSchedule = "0 0 0 * * *"

// SnapshotStore is the part of storage the snapshot job needs.
type SnapshotStore interface {
	ListLedgerBalances(ctx context.Context) ([]models.BalanceSnapshot, error)
	SaveSnapshots(ctx context.Context, snapshots []models.BalanceSnapshot) error
}

// SnapshotJob copies every group balance into the snapshot table.
type SnapshotJob struct {
	store SnapshotStore
	now   func() time.Time
}

// NewSnapshotJob creates a SnapshotJob over store.
func NewSnapshotJob(store SnapshotStore) *SnapshotJob {
	return &SnapshotJob{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run takes one snapshot of all groups and returns how many rows it wrote.
func (j *SnapshotJob) Run(ctx context.Context) (int, error) {
	balances, err := j.store.ListLedgerBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list ledger balances: %w", err)
	}
	if len(balances) == 0 {
		return 0, nil
	}

	takenAt := j.now()
	for i := range balances {
		balances[i].TakenAt = takenAt
	}

	if err := j.store.SaveSnapshots(ctx, balances); err != nil {
		return 0, fmt.Errorf("failed to save snapshots: %w", err)
	}

	metrics.SnapshotsTaken.Add(float64(len(balances)))
	return len(balances), nil
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler registers the snapshot job under schedule. Jobs run with ctx,
// which should outlive the scheduler.
func NewScheduler(ctx context.Context, snapshot *SnapshotJob, schedule string) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSnapshotSchedule
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, ctx: ctx}

	if _, err := c.AddFunc(schedule, func() { s.runSnapshot(snapshot) }); err != nil {
		return nil, fmt.Errorf("failed to register snapshot job %q: %w", schedule, err)
	}

	slog.Info("Cron jobs registered", "snapshot_schedule", schedule)
	return s, nil
}

func (s *Scheduler) runSnapshot(job *SnapshotJob) {
	start := time.Now()
	n, err := job.Run(s.ctx)
	if err != nil {
		slog.Error("Balance snapshot failed", "error", err)
		return
	}
	slog.Info("Balance snapshot taken", "groups", n, "duration_ms", time.Since(start).Milliseconds())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
