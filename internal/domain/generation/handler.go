package generation

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/physio/physio/internal/platform/auth"
	"github.com/physio/physio/internal/platform/httperr"
	"github.com/physio/physio/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/visits/:id/ai-generation", h.Generate)
	api.GET("/visits/:id/ai-generations", h.List)
	api.GET("/visits/:id/ai-generations/:genId", h.Get)
}

func (h *Handler) Generate(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
	}

	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return httperr.InvalidInput("malformed request body")
	}

	ctx := c.Request().Context()
	g, err := h.svc.Generate(ctx, auth.TherapistIDFromContext(ctx), visitID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) List(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
	}

	pg := pagination.FromContext(c, "desc")
	ctx := c.Request().Context()

	items, total, err := h.svc.List(ctx, auth.TherapistIDFromContext(ctx), visitID, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	visitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
	}
	genID, err := uuid.Parse(c.Param("genId"))
	if err != nil {
		return httperr.InvalidInput("invalid generation id")
	}

	ctx := c.Request().Context()
	g, err := h.svc.Get(ctx, auth.TherapistIDFromContext(ctx), visitID, genID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}
