package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/response"
)

// TaskHandler exposes the task lifecycle over HTTP. Every route requires an
// authenticated actor; ownership enforcement lives in the service.
type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=4096"`
	Quote       string `json:"quote" validate:"max=1024"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=4096"`
	Completed   *bool   `json:"completed"`
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Quote:       req.Quote,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, task)
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	tasks, err := h.tasks.List(requestContext(c), actor, services.ListTasksOptions{
		OwnerID: c.Query("owner_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tasks)
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	task, err := h.tasks.Get(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateTaskRequest
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Update(requestContext(c), actor, c.Param("id"), services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// PATCH /api/tasks/:id/toggle
func (h *TaskHandler) Toggle(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	task, err := h.tasks.ToggleCompletion(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.tasks.Delete(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
