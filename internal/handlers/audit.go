package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/response"
)

// AuditHandler exposes the task audit trail. Listing and acknowledging are
// admin operations; per-task history is open to the task's owner as well.
type AuditHandler struct {
	audit *services.AuditService
	tasks *services.TaskService
}

func NewAuditHandler(audit *services.AuditService, tasks *services.TaskService) *AuditHandler {
	return &AuditHandler{audit: audit, tasks: tasks}
}

type markViewedRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 20)

	filters := services.AuditFilters{
		TaskID:  c.Query("task_id"),
		ActorID: c.Query("actor_id"),
		Action:  c.Query("action"),
	}

	if s := c.Query("since"); s != "" {
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			filters.Since = &parsed
		}
	}
	if u := c.Query("until"); u != "" {
		if parsed, err := time.Parse(time.RFC3339, u); err == nil {
			filters.Until = &parsed
		}
	}

	records, total, err := h.audit.Query(requestContext(c), services.AuditQueryOptions{
		Page:     page,
		PageSize: per,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, records, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}

// GET /api/audit/task/:taskId
//
// History stays readable after the task is soft deleted, so the ownership
// check reads the raw row instead of going through the task service.
func (h *AuditHandler) FindByTask(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	taskID := c.Param("taskId")
	ownerID, err := h.tasks.OwnerOf(requestContext(c), taskID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !authz.Authorize(actor, ownerID, authz.ActionView).Allowed() {
		response.Error(c, errors.ErrForbidden)
		return
	}

	records, err := h.audit.FindByTask(requestContext(c), taskID)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, records)
}

// POST /api/audit/viewed
func (h *AuditHandler) MarkViewed(c *gin.Context) {
	var req markViewedRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.audit.MarkViewed(requestContext(c), req.IDs); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}
