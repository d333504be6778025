package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/physio/physio/internal/platform/auth"
	"github.com/physio/physio/internal/platform/etag"
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
	api.GET("/patients", h.List)
	api.POST("/patients", h.Create)
	api.GET("/patients/:id", h.Get)
	api.PUT("/patients/:id", h.Update)
	api.DELETE("/patients/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c, "asc")
	ctx := c.Request().Context()

	items, total, err := h.svc.List(ctx, auth.TherapistIDFromContext(ctx), c.QueryParam("search"), pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid patient id")
	}

	ctx := c.Request().Context()
	p, err := h.svc.GetOwned(ctx, auth.TherapistIDFromContext(ctx), id)
	if err != nil {
		return err
	}
	etag.SetHeader(c, p.UpdatedAt)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Create(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return httperr.InvalidInput("malformed request body")
	}

	ctx := c.Request().Context()
	p, err := h.svc.Create(ctx, auth.TherapistIDFromContext(ctx), req)
	if err != nil {
		return err
	}
	etag.SetHeader(c, p.UpdatedAt)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid patient id")
	}

	expected, err := etag.FromRequest(c)
	if err != nil {
		return err
	}

	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return httperr.InvalidInput("malformed request body")
	}

	ctx := c.Request().Context()
	p, err := h.svc.Update(ctx, auth.TherapistIDFromContext(ctx), id, req, expected)
	if err != nil {
		return err
	}
	etag.SetHeader(c, p.UpdatedAt)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid patient id")
	}

	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.TherapistIDFromContext(ctx), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
