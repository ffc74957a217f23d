package middleware

// identity.go stores the authenticated account in the Echo context and
// reads it back. TokenAuth and SessionAuth are the only writers; handlers,
// the rate limiter and the response cache are readers.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/finance-tracker/internal/model"
    "github.com/iliyamo/finance-tracker/internal/policy"
)

const (
    userKey  = "user"
    tokenKey = "access_token"
)

// SetUser records u as the authenticated account of the request.
func SetUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// CurrentUser returns the authenticated account or nil for guests.
func CurrentUser(c echo.Context) *model.User {
    u, _ := c.Get(userKey).(*model.User)
    return u
}

// Actor returns the acting user of an authenticated request. Routes that
// call it sit behind TokenAuth or SessionAuth.
func Actor(c echo.Context) policy.ActingUser {
    if u := CurrentUser(c); u != nil {
        return policy.Actor(u)
    }
    return policy.ActingUser{}
}

// CurrentToken returns the personal access token used by an API request.
func CurrentToken(c echo.Context) *model.PersonalAccessToken {
    t, _ := c.Get(tokenKey).(*model.PersonalAccessToken)
    return t
}

// userID identifies the caller in rate limit and cache keys. It returns
// "guest" when no user is authenticated.
func userID(c echo.Context) string {
    if u := CurrentUser(c); u != nil {
        return strconv.FormatUint(u.ID, 10)
    }
    return "guest"
}
