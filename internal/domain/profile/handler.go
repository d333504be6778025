package profile

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/physio/physio/internal/platform/auth"
	"github.com/physio/physio/internal/platform/etag"
	"github.com/physio/physio/internal/platform/httperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/profile", h.Get)
	api.POST("/profile", h.Create)
	api.PUT("/profile", h.Update)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, auth.TherapistIDFromContext(ctx))
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
	expected, err := etag.FromRequest(c)
	if err != nil {
		return err
	}

	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return httperr.InvalidInput("malformed request body")
	}

	ctx := c.Request().Context()
	p, err := h.svc.Update(ctx, auth.TherapistIDFromContext(ctx), req, expected)
	if err != nil {
		return err
	}
	etag.SetHeader(c, p.UpdatedAt)
	return c.JSON(http.StatusOK, p)
}
