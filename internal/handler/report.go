package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"shopmanager/internal/repository"
)

// ReportHandler serves the admin-only report endpoints. Authorization is
// enforced by the JWT and role middleware on the route group, not here.
type ReportHandler struct {
	Reports *repository.ReportRepo
}

func NewReportHandler(r *repository.ReportRepo) *ReportHandler {
	return &ReportHandler{Reports: r}
}

// Revenue returns order count and revenue for a period. Optional `from` and
// `to` query params take RFC 3339 timestamps; the default window is the
// last 30 days.
func (h *ReportHandler) Revenue(c echo.Context) error {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to"})
		}
		to = t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rep, err := h.Reports.Revenue(ctx, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report failed"})
	}
	return c.JSON(http.StatusOK, rep)
}

// TopProducts returns the best sellers; `limit` caps at 100, default 10.
func (h *ReportHandler) TopProducts(c echo.Context) error {
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Reports.TopProducts(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"products": rows})
}
