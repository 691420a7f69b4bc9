package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/cache"
	"github.com/taskhive/taskhive/internal/models"
	apperrors "github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/logger"
	"github.com/taskhive/taskhive/pkg/metrics"
)

// QuoteProvider supplies optional enrichment text for new tasks. Failures must
// be absorbed by implementations; ok=false simply means "no quote".
type QuoteProvider interface {
	RandomQuote(ctx context.Context) (string, bool)
}

// CreateTaskInput describes the fields accepted when creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Quote       string
}

// UpdateTaskInput enumerates the mutable task attributes. Nil pointers mean
// "leave unchanged"; only supplied fields participate in the audit diff.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
}

// ListTasksOptions narrows task listings. OwnerID is only honoured for admins.
type ListTasksOptions struct {
	OwnerID string
}

// TaskService orchestrates the task lifecycle: it authorizes the actor,
// applies the change to authoritative storage, appends the audit record and
// keeps the cache coherent for the entities it fronts.
type TaskService struct {
	db     *gorm.DB
	audit  *AuditService
	cache  *cache.Cache
	quotes QuoteProvider
	log    *zap.Logger
}

// NewTaskService constructs a TaskService. The cache and quote provider are
// optional; without them the service degrades to uncached, unenriched behaviour.
func NewTaskService(db *gorm.DB, audit *AuditService, taskCache *cache.Cache, quotes QuoteProvider) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if audit == nil {
		return nil, errors.New("task service: audit service is required")
	}
	return &TaskService{
		db:     db,
		audit:  audit,
		cache:  taskCache,
		quotes: quotes,
		log:    logger.WithModule("tasks"),
	}, nil
}

// Create persists a new task owned by the actor and appends a Created audit
// record. Quote enrichment is best-effort and never affects the outcome.
func (s *TaskService) Create(ctx context.Context, actor authz.Actor, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		metrics.TaskOperations.WithLabelValues("create", "error").Inc()
		return nil, apperrors.NewBadRequest("title is required")
	}

	if !authz.Authorize(actor, actor.ID, authz.ActionCreate).Allowed() {
		metrics.TaskOperations.WithLabelValues("create", "denied").Inc()
		return nil, apperrors.ErrForbidden
	}

	quote := strings.TrimSpace(input.Quote)
	if quote == "" && s.quotes != nil {
		if fetched, ok := s.quotes.RandomQuote(ctx); ok {
			quote = fetched
		}
	}

	task := models.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Quote:       quote,
		OwnerID:     actor.ID,
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		metrics.TaskOperations.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("task service: create task: %w", err)
	}

	// Audit append is a separate, ordered step: a failure here leaves the
	// task created but unaudited. Logged, not fatal.
	s.appendAudit(ctx, &task, models.ActionCreated, &actor, nil, map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"quote":       task.Quote,
		"owner_id":    task.OwnerID,
	})

	metrics.TaskOperations.WithLabelValues("create", "success").Inc()
	return &task, nil
}

// Get fetches a task from authoritative storage, bypassing the cache so the
// ownership check always runs against the current owner. Soft-deleted tasks
// are reported as not found.
func (s *TaskService) Get(ctx context.Context, actor authz.Actor, id string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if !authz.Authorize(actor, task.OwnerID, authz.ActionView).Allowed() {
		metrics.TaskOperations.WithLabelValues("get", "denied").Inc()
		return nil, apperrors.ErrForbidden
	}

	metrics.TaskOperations.WithLabelValues("get", "success").Inc()
	return task, nil
}

// List returns the non-deleted tasks visible to the actor: their own for the
// user role, everything (optionally narrowed to one owner) for admins.
func (s *TaskService) List(ctx context.Context, actor authz.Actor, opts ListTasksOptions) ([]models.Task, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Scopes(models.ActiveTasks).Preload("Owner")

	switch actor.Role {
	case models.RoleAdmin:
		if owner := strings.TrimSpace(opts.OwnerID); owner != "" {
			query = query.Where("owner_id = ?", owner)
		}
	case models.RoleUser:
		query = query.Where("owner_id = ?", actor.ID)
	default:
		return nil, apperrors.ErrForbidden
	}

	var tasks []models.Task
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task service: list tasks: %w", err)
	}

	return tasks, nil
}

// Update applies a partial change to a task, appends the audit record derived
// from the diff and invalidates cache entries fronting the task. The audit
// action reflects the actual completed transition: false→true is Completed,
// true→false is Reopened, anything else is Updated.
func (s *TaskService) Update(ctx context.Context, actor authz.Actor, id string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if !authz.Authorize(actor, task.OwnerID, authz.ActionUpdate).Allowed() {
		metrics.TaskOperations.WithLabelValues("update", "denied").Inc()
		return nil, apperrors.ErrForbidden
	}

	previous := map[string]any{}
	next := map[string]any{}
	action := models.ActionUpdated

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			metrics.TaskOperations.WithLabelValues("update", "error").Inc()
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		if title != task.Title {
			previous["title"] = task.Title
			next["title"] = title
			task.Title = title
		}
	}

	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description != task.Description {
			previous["description"] = task.Description
			next["description"] = description
			task.Description = description
		}
	}

	if input.Completed != nil && *input.Completed != task.Completed {
		previous["completed"] = task.Completed
		next["completed"] = *input.Completed
		if *input.Completed {
			action = models.ActionCompleted
		} else {
			action = models.ActionReopened
		}
		task.Completed = *input.Completed
	}

	// Whole-record overwrite: concurrent updates race last-writer-wins, but
	// each racer still appends its own audit record below.
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		metrics.TaskOperations.WithLabelValues("update", "error").Inc()
		return nil, fmt.Errorf("task service: update task: %w", err)
	}

	s.appendAudit(ctx, task, action, &actor, previous, next)
	s.invalidate(ctx, task)

	metrics.TaskOperations.WithLabelValues("update", "success").Inc()
	return task, nil
}

// ToggleCompletion flips the completed flag, reusing Update so the diff and
// audit action derivation stay in one place.
func (s *TaskService) ToggleCompletion(ctx context.Context, actor authz.Actor, id string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	toggled := !task.Completed
	return s.Update(ctx, actor, id, UpdateTaskInput{Completed: &toggled})
}

// Delete soft deletes a task. The row and its audit history remain; a terminal
// Deleted record snapshots the tracked fields at deletion time.
func (s *TaskService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	ctx = ensureContext(ctx)

	task, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}

	if !authz.Authorize(actor, task.OwnerID, authz.ActionDelete).Allowed() {
		metrics.TaskOperations.WithLabelValues("delete", "denied").Inc()
		return apperrors.ErrForbidden
	}

	task.Deleted = true
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		metrics.TaskOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("task service: delete task: %w", err)
	}

	s.appendAudit(ctx, task, models.ActionDeleted, &actor, map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"completed":   task.Completed,
	}, nil)
	s.invalidate(ctx, task)

	metrics.TaskOperations.WithLabelValues("delete", "success").Inc()
	return nil
}

// OwnerOf returns the owner id of a task regardless of its deleted flag. The
// audit history of a soft-deleted task stays readable, so this lookup must not
// go through the active-tasks scope.
func (s *TaskService) OwnerOf(ctx context.Context, id string) (string, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.NewBadRequest("task id is required")
	}

	var task models.Task
	err := s.db.WithContext(ctx).Select("id", "owner_id").First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.NewNotFound("task", id)
	}
	if err != nil {
		return "", fmt.Errorf("task service: load task owner: %w", err)
	}

	return task.OwnerID, nil
}

// fetch loads a task through the soft-delete choke point.
func (s *TaskService) fetch(ctx context.Context, id string) (*models.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewBadRequest("task id is required")
	}

	var task models.Task
	err := s.db.WithContext(ctx).Scopes(models.ActiveTasks).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}

	return &task, nil
}

func (s *TaskService) appendAudit(ctx context.Context, task *models.Task, action string, actor *authz.Actor, previous, next map[string]any) {
	if _, err := s.audit.Append(ctx, task, action, actor, previous, next); err != nil {
		s.log.Error("audit append failed",
			zap.String("task_id", task.ID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// invalidate removes cache entries fronting the task and its owner aggregate.
// Not transactional with the storage write: a racing reader can observe a
// stale entry for the duration of this call.
func (s *TaskService) invalidate(ctx context.Context, task *models.Task) {
	s.cache.Delete(ctx,
		cache.Key("task", task.ID),
		cache.Key("user-tasks", task.OwnerID),
	)
}
