package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/resource"
	"github.com/iliyamo/finance-tracker/internal/service"
)

// DashboardAPI serves GET /v1/dashboard.
type DashboardAPI struct {
	Dashboard  *service.Dashboard
	Serializer resource.Serializer
}

func NewDashboardAPI(d Deps) *DashboardAPI {
	return &DashboardAPI{Dashboard: d.Dashboard, Serializer: d.serializer()}
}

func (h *DashboardAPI) Show(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	sum, err := h.Dashboard.Summary(ctx, middleware.Actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.Dashboard(sum)))
}
