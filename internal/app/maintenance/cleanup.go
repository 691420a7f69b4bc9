package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/pkg/logger"
)

const (
	defaultAuditSpec = "@daily"
	defaultCacheSpec = "@hourly"
)

// Sweeper coordinates background maintenance: enforcing the opt-in audit
// retention window and purging expired database cache entries. Audit records
// are kept forever unless an operator configures a positive retention.
type Sweeper struct {
	db        *gorm.DB
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	auditSchedule string
	cacheSchedule string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAuditRetentionDays opts in to audit pruning. Zero or negative leaves
// the trail untouched.
func WithAuditRetentionDays(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.auditSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache entry purging.
func WithCacheSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.cacheSchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults. A nil dependency
// results in the corresponding job being skipped.
func NewSweeper(db *gorm.DB, audit *services.AuditService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		db:            db,
		audit:         audit,
		now:           time.Now,
		auditSchedule: defaultAuditSpec,
		cacheSchedule: defaultCacheSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the jobs with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.audit != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(s.auditSchedule, func() {
			ctx := context.Background()
			if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
				s.log.Warn("audit retention sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.db != nil {
		if _, err := s.cron.AddFunc(s.cacheSchedule, func() {
			ctx := context.Background()
			if _, err := PurgeExpiredCacheEntries(ctx, s.db, s.now()); err != nil {
				s.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes all configured sweeps sequentially. Primarily used in tests
// and during graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.audit != nil && s.retention > 0 {
		if _, err := s.audit.CleanupOlderThan(ctx, s.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if s.db != nil {
		if _, err := PurgeExpiredCacheEntries(ctx, s.db, s.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// PurgeExpiredCacheEntries removes database cache rows whose TTL has lapsed.
// The cache store already treats stale rows as misses; this keeps the table
// from accumulating dead weight.
func PurgeExpiredCacheEntries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("purge cache entries: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// A zero ExpiresAt means the entry never expires.
	result := db.WithContext(ctx).
		Where("expires_at > ? AND expires_at < ?", time.Unix(0, 0), now).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge cache entries: %w", result.Error)
	}

	return result.RowsAffected, nil
}
