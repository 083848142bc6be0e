package interpretation

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/astroia/core/internal/pkg/pagination"
	"github.com/astroia/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/lunar/:id/interpretation", h.getInterpretation("full"))
	rg.POST("/lunar/:id/interpretation/regenerate", authMW, h.regenerate)
	rg.GET("/natal/:id/interpretation", h.getInterpretation("sun"))
	rg.POST("/natal/:id/interpretation/regenerate", authMW, h.regenerate)

	tasks := rg.Group("/interpretations")
	tasks.POST("/task", h.createTask)
	tasks.GET("/task/:id", h.getTask)
	tasks.DELETE("/task/:id", authMW, h.deleteTask)
	tasks.GET("/tasks", authMW, h.listTasks)
}

func identityFromRequest(c *gin.Context, defaultSubject string) Identity {
	version, _ := strconv.Atoi(c.Query("version"))
	return Identity{
		RefID:   c.Param("id"),
		Subject: c.DefaultQuery("subject", defaultSubject),
		Lang:    c.Query("lang"),
		Version: version,
	}
}

// GET /lunar/:id/interpretation, GET /natal/:id/interpretation
func (h *Handler) getInterpretation(defaultSubject string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identityFromRequest(c, defaultSubject)
		resolved, err := h.svc.Resolve(c.Request.Context(), id, false)
		if err != nil {
			if errors.Is(err, ErrEntityNotFound) {
				response.NotFoundMsg(c, "Configuration astrologique introuvable")
				return
			}
			response.InternalError(c, err)
			return
		}
		response.OK(c, resolved)
	}
}

// POST /lunar/:id/interpretation/regenerate  [auth]
func (h *Handler) regenerate(c *gin.Context) {
	id := identityFromRequest(c, "full")
	resolved, err := h.svc.Resolve(c.Request.Context(), id, true)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			response.NotFoundMsg(c, "Configuration astrologique introuvable")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, resolved)
}

type createTaskDTO struct {
	RefID   string `json:"ref_id"  binding:"required"`
	Subject string `json:"subject"`
	Lang    string `json:"lang"`
	Version int    `json:"version"`
	Force   bool   `json:"force"`
}

// POST /interpretations/task
func (h *Handler) createTask(c *gin.Context) {
	var dto createTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	id := Identity{RefID: dto.RefID, Subject: dto.Subject, Lang: dto.Lang, Version: dto.Version}
	task, err := h.svc.EnqueueGeneration(c.Request.Context(), id, dto.Force)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			response.NotFoundMsg(c, "Configuration astrologique introuvable")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Accepted(c, task)
}

// GET /interpretations/task/:id
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.svc.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// GET /interpretations/tasks  [auth]
func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)
	tasks, total, err := h.svc.ListTasks(c.Request.Context(), q.Page, q.Size)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, tasks, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	})
}

// DELETE /interpretations/task/:id  [auth]
func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.svc.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}
