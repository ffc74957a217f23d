package middleware

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/finance-tracker/internal/repository"
    "github.com/iliyamo/finance-tracker/internal/session"
)

// SessionAuth guards the web pages. Guests are sent to /login. A user who
// was deactivated while logged in is logged out with an error flash.
func SessionAuth(m *session.Manager, users *repository.UserRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            s := session.Get(c)
            id := s.UserID()
            if id == nil {
                return c.Redirect(http.StatusFound, "/login")
            }
            u, err := users.Find(c.Request().Context(), *id, nil)
            if err != nil && !errors.Is(err, repository.ErrNotFound) {
                return err
            }
            if u == nil || !u.IsActive {
                if err := m.Logout(c); err != nil {
                    return err
                }
                if u != nil {
                    s.Flash(session.Error, DeactivatedMessage)
                }
                return c.Redirect(http.StatusFound, "/login")
            }
            SetUser(c, u)
            return next(c)
        }
    }
}

// RedirectIfAuthenticated keeps logged in users away from the login and
// register pages.
func RedirectIfAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error {
        if session.Get(c).UserID() != nil {
            return c.Redirect(http.StatusFound, "/dashboard")
        }
        return next(c)
    }
}
