package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/handler"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/model"
)

// pages is the set of handlers behind a server-rendered resource.
type pages interface {
	Index(echo.Context) error
	Create(echo.Context) error
	Store(echo.Context) error
	Show(echo.Context) error
	Edit(echo.Context) error
	Update(echo.Context) error
	Destroy(echo.Context) error
}

// RegisterWeb registers the server-rendered pages. Every page carries the
// cookie session and CSRF protection; writes retire the API response
// cache like their /v1 counterparts.
func RegisterWeb(e *echo.Echo, o Options) {
	d := o.Deps
	web := e.Group("",
		d.Sessions.Middleware(),
		csrf(d.Cfg),
		middleware.InvalidateOnWrite(o.Cache, o.Redis, d.Log),
	)

	auth := handler.NewWebAuth(d)
	web.GET("/", auth.Home)

	// Guests only: a logged in user is sent to the dashboard.
	guest := web.Group("", middleware.RedirectIfAuthenticated)
	guest.GET("/login", auth.ShowLogin)
	guest.POST("/login", auth.Login)
	guest.GET("/register", auth.ShowRegister)
	guest.POST("/register", auth.Register)

	signed := web.Group("", middleware.SessionAuth(d.Sessions, d.Users))
	signed.POST("/logout", auth.Logout)
	signed.GET("/dashboard", handler.NewWebDashboard(d).Index)

	profile := handler.NewWebProfile(d)
	signed.GET("/profile", profile.Edit)
	signed.PATCH("/profile", profile.Update)
	signed.DELETE("/profile", profile.Destroy)
	signed.PATCH("/profile/image", profile.UpdateImage)

	webResource(signed, "/categories", handler.NewWebCategory(d))
	webResource(signed, "/expenses", handler.NewWebEntry[model.Expense](d, d.Expenses))
	webResource(signed, "/incomes", handler.NewWebEntry[model.Income](d, d.Incomes))

	admin := signed.Group("", middleware.RequireRole(model.RoleAdmin))
	users := handler.NewWebUser(d)
	webResource(admin, "/users", users)
	admin.PATCH("/users/:id/toggle-active", users.ToggleActive)
}

// webResource maps the seven page actions of a resource onto its routes.
// The create form is registered before /:id so "create" is not an id.
func webResource(g *echo.Group, path string, h pages) {
	g.GET(path, h.Index)
	g.GET(path+"/create", h.Create)
	g.POST(path, h.Store)
	g.GET(path+"/:id", h.Show)
	g.GET(path+"/:id/edit", h.Edit)
	g.PUT(path+"/:id", h.Update)
	g.PATCH(path+"/:id", h.Update)
	g.DELETE(path+"/:id", h.Destroy)
}
