package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"movie-discovery/internal/config"
	"movie-discovery/internal/models"
)

// CatalogSyncer runs the catalog refresh jobs.
type CatalogSyncer interface {
	SyncPopular(ctx context.Context, pages int, clearCache bool) (*models.SyncReport, error)
	WarmCache(ctx context.Context, pages int) int
}

// RecommendationPrecomputer refreshes cached personalized recommendations.
type RecommendationPrecomputer interface {
	PrecomputeAll(ctx context.Context) (*models.PrecomputeReport, error)
}

// CatalogCounter reports how many movies are stored locally.
type CatalogCounter interface {
	CountMovies(ctx context.Context) (int, error)
}

// jobTimeout bounds a single scheduled run.
const jobTimeout = 15 * time.Minute

// Scheduler runs periodic catalog sync, cache warmup and recommendation
// precompute.
type Scheduler struct {
	cron    *cron.Cron
	syncer  CatalogSyncer
	counter CatalogCounter
	recs    RecommendationPrecomputer
	cfg     config.SchedulerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. Overlapping runs of the same job are skipped. A nil
// recs or an empty RecommendationSchedule disables the precompute job.
func New(syncer CatalogSyncer, counter CatalogCounter, recs RecommendationPrecomputer, cfg config.SchedulerConfig) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		syncer:  syncer,
		counter: counter,
		recs:    recs,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the jobs and starts the scheduler. An empty catalog is
// seeded with an immediate sync.
func (s *Scheduler) Start() error {
	slog.Info("starting scheduler",
		"sync_schedule", s.cfg.SyncSchedule,
		"warm_schedule", s.cfg.WarmSchedule,
		"recommendation_schedule", s.cfg.RecommendationSchedule)

	if _, err := s.cron.AddFunc(s.cfg.SyncSchedule, s.runSync); err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.WarmSchedule, s.runWarm); err != nil {
		return fmt.Errorf("failed to add warm job: %w", err)
	}
	if s.recs != nil && s.cfg.RecommendationSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.RecommendationSchedule, s.runPrecompute); err != nil {
			return fmt.Errorf("failed to add recommendation job: %w", err)
		}
	}

	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.bootstrap()
	}()
	return nil
}

// Stop stops scheduling, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	slog.Info("stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) bootstrap() {
	n, err := s.counter.CountMovies(s.ctx)
	if err != nil {
		slog.Error("failed to count catalog movies", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("catalog already populated, skipping initial sync", "movies", n)
		return
	}
	slog.Info("catalog is empty, running initial sync")
	s.runSync()
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	slog.Info("running scheduled sync", "pages", s.cfg.SyncPages)
	report, err := s.syncer.SyncPopular(ctx, s.cfg.SyncPages, false)
	if err != nil {
		slog.Error("sync job failed", "error", err)
		return
	}
	slog.Info("sync job completed", "created", report.Created, "updated", report.Updated, "failed", report.Failed)
}

func (s *Scheduler) runWarm() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	slog.Debug("running scheduled cache warmup", "pages", s.cfg.WarmPages)
	s.syncer.WarmCache(ctx, s.cfg.WarmPages)
}

func (s *Scheduler) runPrecompute() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	slog.Info("running scheduled recommendation precompute")
	if _, err := s.recs.PrecomputeAll(ctx); err != nil {
		slog.Error("recommendation job failed", "error", err)
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
