package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/handler"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/model"
)

// RegisterAPI registers the JSON API under /v1. Login and register are
// public; everything else requires a bearer token. All of it is rate
// limited.
// GET responses are cached per user and every successful write retires
// the cache.
func RegisterAPI(e *echo.Echo, o Options) {
	d := o.Deps
	auth := handler.NewAuthAPI(d)

	limit := middleware.NewTokenBucket(o.RateLimit, o.Redis, d.Log)

	// Unauthenticated operations hand out tokens. Their bucket is keyed as
	// a guest.
	e.POST("/v1/login", auth.Login, limit)
	e.POST("/v1/register", auth.Register, limit)

	g := e.Group("/v1",
		middleware.TokenAuth(d.Cfg.JWTSecret, d.Tokens, d.Users, d.Log),
		limit,
		middleware.InvalidateOnWrite(o.Cache, o.Redis, d.Log),
		middleware.NewRedisCache(o.Cache, o.Redis, d.Log),
	)

	g.GET("/user", auth.User)
	g.POST("/logout", auth.Logout)
	g.POST("/logout-all", auth.LogoutAll)

	users := handler.NewUserAPI(d)
	resource(g, "/users", users.Index, users.Store, users.Show, users.Update, users.Destroy)
	g.PATCH("/users/:id/toggle-active", users.ToggleActive)

	categories := handler.NewCategoryAPI(d)
	resource(g, "/categories", categories.Index, categories.Store, categories.Show, categories.Update, categories.Destroy)

	expenses := handler.NewEntryAPI[model.Expense](d, d.Expenses)
	resource(g, "/expenses", expenses.Index, expenses.Store, expenses.Show, expenses.Update, expenses.Destroy)

	incomes := handler.NewEntryAPI[model.Income](d, d.Incomes)
	resource(g, "/incomes", incomes.Index, incomes.Store, incomes.Show, incomes.Update, incomes.Destroy)

	profile := handler.NewProfileAPI(d)
	g.GET("/profile", profile.Show)
	g.PUT("/profile", profile.Update)
	g.DELETE("/profile", profile.Destroy)
	g.POST("/profile/image", profile.UpdateImage)

	g.GET("/dashboard", handler.NewDashboardAPI(d).Show)
}

// resource maps the five API actions of a collection onto its routes.
func resource(g *echo.Group, path string, index, store, show, update, destroy echo.HandlerFunc) {
	g.GET(path, index)
	g.POST(path, store)
	g.GET(path+"/:id", show)
	g.PUT(path+"/:id", update)
	g.PATCH(path+"/:id", update)
	g.DELETE(path+"/:id", destroy)
}
