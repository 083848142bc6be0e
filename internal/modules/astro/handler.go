package astro

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/astroia/core/internal/models"
	"github.com/astroia/core/internal/pkg/pagination"
	"github.com/astroia/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	lunar := rg.Group("/lunar")
	lunar.POST("/compute", authMW, h.computeLunarReturn)
	lunar.GET("/:id", h.getLunarReturn)
	lunar.GET("", h.listLunarReturns)

	natal := rg.Group("/natal")
	natal.POST("/compute", authMW, h.computeNatalChart)
	natal.GET("/:id", h.getNatalChart)
}

// POST /lunar/compute  [auth]
func (h *Handler) computeLunarReturn(c *gin.Context) {
	var dto ComputeLunarReturnDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	lr, err := h.svc.ComputeLunarReturn(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, ErrChartUnavailable) {
			response.BadGateway(c, "Calcul du thème indisponible pour le moment")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, lr)
}

// GET /lunar/:id
func (h *Handler) getLunarReturn(c *gin.Context) {
	lr, err := h.svc.GetLunarReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if lr == nil {
		response.NotFoundMsg(c, "Révolution lunaire introuvable")
		return
	}
	response.OK(c, lr)
}

// GET /lunar?user_id=...&page=&size=
func (h *Handler) listLunarReturns(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.BadRequest(c, "user_id is required")
		return
	}
	q := pagination.FromContext(c)

	tx := h.svc.db.WithContext(c.Request.Context()).
		Model(&models.LunarReturnModel{}).
		Where("user_id = ?", userID).
		Order("return_date DESC")
	var items []models.LunarReturnModel
	pag, err := pagination.Paginate(tx, q, &items)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// POST /natal/compute  [auth]
func (h *Handler) computeNatalChart(c *gin.Context) {
	var dto ComputeNatalChartDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	nc, err := h.svc.ComputeNatalChart(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, ErrChartUnavailable) {
			response.BadGateway(c, "Calcul du thème indisponible pour le moment")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, nc)
}

// GET /natal/:id
func (h *Handler) getNatalChart(c *gin.Context) {
	nc, err := h.svc.GetNatalChart(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if nc == nil {
		response.NotFoundMsg(c, "Thème natal introuvable")
		return
	}
	response.OK(c, nc)
}
