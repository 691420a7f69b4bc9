package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/metrics"
)

// AuditFilters encapsulates optional filters when querying the audit trail.
// Filters combine conjunctively. The date range only applies when both bounds
// are present and is inclusive on both ends.
type AuditFilters struct {
	TaskID  string
	ActorID string
	Action  string
	Since   *time.Time
	Until   *time.Time
}

// AuditQueryOptions controls pagination and filtering for audit queries.
type AuditQueryOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves the append-only task audit trail.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Append creates a new immutable audit record for a persisted task. Existing
// records are never mutated; every recognised state transition appends exactly
// one record.
func (s *AuditService) Append(ctx context.Context, task *models.Task, action string, actor *authz.Actor, previousValues, newValues map[string]any) (*models.AuditRecord, error) {
	ctx = ensureContext(ctx)

	if task == nil || strings.TrimSpace(task.ID) == "" {
		return nil, errors.New("audit service: persisted task is required")
	}
	if strings.TrimSpace(action) == "" {
		return nil, errors.New("audit service: action is required")
	}

	record := models.AuditRecord{
		TaskID:         task.ID,
		Action:         action,
		PreviousValues: previousValues,
		NewValues:      newValues,
	}

	if actor != nil && strings.TrimSpace(actor.ID) != "" {
		id := strings.TrimSpace(actor.ID)
		record.ActorID = &id
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("audit service: append record: %w", err)
	}

	metrics.AuditRecords.WithLabelValues(action).Inc()
	return &record, nil
}

// Query returns paginated audit records ordered by creation time descending,
// along with the total size of the filtered set before pagination.
func (s *AuditService) Query(ctx context.Context, opts AuditQueryOptions) ([]models.AuditRecord, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 20
	}

	var (
		results []models.AuditRecord
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditRecord{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count records: %w", err)
	}

	if err := query.
		Preload("Actor").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list records: %w", err)
	}

	return results, total, nil
}

// FindByTask returns every audit record for a task, newest first. The task may
// be soft deleted; its history stays retrievable.
func (s *AuditService) FindByTask(ctx context.Context, taskID string) ([]models.AuditRecord, error) {
	ctx = ensureContext(ctx)

	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, errors.New("audit service: task id is required")
	}

	var records []models.AuditRecord
	if err := s.db.WithContext(ctx).
		Preload("Actor").
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("audit service: records for task: %w", err)
	}

	return records, nil
}

// MarkViewed flips viewed to true for every record in ids that is still
// unviewed. Unknown ids are silently ignored and repeated calls are no-ops.
func (s *AuditService) MarkViewed(ctx context.Context, ids []string) error {
	ctx = ensureContext(ctx)

	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Model(&models.AuditRecord{}).
		Where("id IN ? AND viewed = ?", ids, false).
		Update("viewed", true).Error
}

// CleanupOlderThan removes audit records older than the supplied retention
// window in days. It backs the opt-in retention sweep; a zero or negative
// retention never reaches this method.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup records: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.TaskID != "" {
		query = query.Where("task_id = ?", filters.TaskID)
	}
	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Since != nil && filters.Until != nil {
		query = query.Where("created_at >= ? AND created_at <= ?", *filters.Since, *filters.Until)
	}
	return query
}
