package visit

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
	api.GET("/patients/:id/visits", h.ListByPatient)
	api.POST("/patients/:id/visits", h.Create)
	api.GET("/visits/:id", h.Get)
	api.PUT("/visits/:id", h.Update)
	api.PUT("/visits/:id/recommendations", h.SaveRecommendations)
	api.DELETE("/visits/:id", h.Delete)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid patient id")
	}

	pg := pagination.FromContext(c, "desc")
	ctx := c.Request().Context()

	items, total, err := h.svc.ListByPatient(ctx, auth.TherapistIDFromContext(ctx), patientID, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Create(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid patient id")
	}

	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return httperr.InvalidInput("malformed request body")
	}

	ctx := c.Request().Context()
	v, err := h.svc.Create(ctx, auth.TherapistIDFromContext(ctx), patientID, req)
	if err != nil {
		return err
	}
	etag.SetHeader(c, v.UpdatedAt)
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
	}

	ctx := c.Request().Context()
	v, err := h.svc.GetOwned(ctx, auth.TherapistIDFromContext(ctx), id)
	if err != nil {
		return err
	}
	etag.SetHeader(c, v.UpdatedAt)
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
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
	v, err := h.svc.Update(ctx, auth.TherapistIDFromContext(ctx), id, req, expected)
	if err != nil {
		return err
	}
	etag.SetHeader(c, v.UpdatedAt)
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) SaveRecommendations(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
	}

	expected, err := etag.FromRequest(c)
	if err != nil {
		return err
	}

	var req RecommendationsRequest
	if err := c.Bind(&req); err != nil {
		return httperr.InvalidInput("malformed request body")
	}

	ctx := c.Request().Context()
	v, err := h.svc.SaveRecommendations(ctx, auth.TherapistIDFromContext(ctx), id, req, expected)
	if err != nil {
		return err
	}
	etag.SetHeader(c, v.UpdatedAt)
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return httperr.InvalidInput("invalid visit id")
	}

	ctx := c.Request().Context()
	if err := h.svc.Delete(ctx, auth.TherapistIDFromContext(ctx), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
