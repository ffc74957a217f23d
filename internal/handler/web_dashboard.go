package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/service"
)

type WebDashboard struct {
	Dashboard *service.Dashboard
}

func NewWebDashboard(d Deps) *WebDashboard { return &WebDashboard{Dashboard: d.Dashboard} }

func (h *WebDashboard) Index(c echo.Context) error {
	ctx, cancel := dbContext(c)
	defer cancel()

	sum, err := h.Dashboard.Summary(ctx, middleware.Actor(c))
	if err != nil {
		return err
	}
	return render(c, "dashboard", "Dashboard", sum)
}
