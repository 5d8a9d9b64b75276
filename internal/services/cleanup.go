package services

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"time"

	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// CleanupOptions configures the background retry of archive cleanups
type CleanupOptions struct {
	Interval      time.Duration
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent float64
}

// DefaultCleanupOptions returns the options used when none are configured
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		Interval:      time.Minute,
		MaxRetries:    3,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 0.1,
	}
}

// CleanupService removes the live documents left behind by archives that
// could not finish their cleanup
type CleanupService struct {
	notifier
	log  logger.Logger
	repo repository.ArchiveRepository
	opts CleanupOptions

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCleanupService creates a new CleanupService
func NewCleanupService(log logger.Logger, repo repository.ArchiveRepository, opts CleanupOptions) *CleanupService {
	def := DefaultCleanupOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = def.MaxDelay
	}
	return &CleanupService{log: log, repo: repo, opts: opts, sleep: sleepContext}
}

// Run retries pending cleanups every interval until ctx is cancelled
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("Archive cleanup pass incomplete", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce tries every pending cleanup and returns how many completed.
// The returned error is the last failure, if any cleanup is still pending.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.repo.ListPendingCleanups(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		s.recordCleanupPending(0)
		return 0, nil
	}

	done := 0
	var lastErr error
	for _, id := range ids {
		if err := s.cleanup(ctx, id); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		done++
	}

	s.recordCleanupPending(len(ids) - done)
	if done > 0 {
		s.log.Info("Archive cleanups completed", "completed", done, "pending", len(ids)-done)
	}
	return done, lastErr
}

// cleanup retries one constitution with exponential backoff
func (s *CleanupService) cleanup(ctx context.Context, id string) error {
	var err error
	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if serr := s.sleep(ctx, s.retryDelay(attempt)); serr != nil {
				return serr
			}
		}
		err = s.repo.CleanupConstitution(ctx, id)
		if err == nil || stderrors.Is(err, repository.ErrNotFound) {
			return nil
		}
		s.log.Debug("Archive cleanup failed", "constitution_id", id, "attempt", attempt+1, "error", err)
	}
	s.log.Warn("Archive cleanup still pending", "constitution_id", id, "attempts", s.opts.MaxRetries, "error", err)
	return err
}

func (s *CleanupService) retryDelay(attempt int) time.Duration {
	delay := s.opts.BaseDelay * time.Duration(1<<attempt)
	if delay > s.opts.MaxDelay {
		delay = s.opts.MaxDelay
	}

	jitter := int64(float64(delay) * s.opts.JitterPercent)
	if jitter > 0 {
		//nolint:gosec // G404: retry jitter does not need a secure source
		delay += time.Duration(rand.Int64N(2*jitter) - jitter)
	}

	if delay < s.opts.BaseDelay {
		return s.opts.BaseDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
