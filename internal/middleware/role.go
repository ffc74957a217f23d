// Package middleware provides the echo middleware shared by the API and
// the web pages: authentication, role checks, rate limiting, response
// caching and request logging.
package middleware

import (
    "slices"

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/finance-tracker/internal/model"
    "github.com/iliyamo/finance-tracker/internal/policy"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user holds one of the given roles. It assumes TokenAuth or
// SessionAuth ran first. Other users get a policy denial, which the error
// handler renders as a 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u := CurrentUser(c)
            if u == nil || !slices.Contains(roles, u.Role) {
                return &policy.Denial{Message: "User does not have the right roles."}
            }
            return next(c)
        }
    }
}
