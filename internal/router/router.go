// Package router registers the HTTP routes of the API and the web pages.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"                    // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // stock Echo middleware (recover, CSRF, method override)
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/iliyamo/finance-tracker/internal/config"
	"github.com/iliyamo/finance-tracker/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/finance-tracker/internal/middleware" // import middleware for authentication and role enforcement
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/view"
)

// methodField is the hidden form field HTML forms use to send PUT, PATCH
// and DELETE requests.
const methodField = "_method"

// Options is everything the router needs to build the application.
type Options struct {
	Deps      handler.Deps
	DB        *gorm.DB
	Redis     *redis.Client // nil disables rate limiting and caching
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Renderer  echo.Renderer
}

// New builds the Echo instance with every route registered.
func New(o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = request.NewValidator()
	e.Renderer = o.Renderer
	e.HTTPErrorHandler = handler.ErrorHandler(o.Deps.Log)

	// Pre runs before routing, so the overridden method selects the route.
	e.Pre(echomw.MethodOverrideWithConfig(echomw.MethodOverrideConfig{
		Getter: echomw.MethodFromForm(methodField),
	}))
	e.Use(middleware.RequestLogger(o.Deps.Log))
	e.Use(echomw.Recover())

	RegisterRoutes(e, o.DB, o.Deps.Cfg.UploadDir)
	RegisterAPI(e, o)
	RegisterWeb(e, o)

	// Group middleware installs catch-all routes; unknown paths are plain 404s.
	notFound := func(echo.Context) error { return echo.ErrNotFound }
	e.RouteNotFound("/*", notFound)
	e.RouteNotFound("/v1/*", notFound)
	return e
}

// RegisterRoutes registers routes that do not require authentication: the
// health check, the bundled assets and the uploaded profile pictures.
func RegisterRoutes(e *echo.Echo, db *gorm.DB, uploadDir string) {
	// Load balancers and monitoring systems use /healthz to verify that the
	// service and its database are up.
	e.GET("/healthz", handler.Health(db))
	e.StaticFS("/static", view.Static())
	e.Static("/storage", uploadDir)
}

// csrf protects every web form. The token travels in the _csrf form field
// and is exposed to templates under the "csrf" context key.
func csrf(cfg config.Config) echo.MiddlewareFunc {
	if !cfg.WebCSRF {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.SessionSecure,
		CookieSameSite: http.SameSiteLaxMode,
	})
}
