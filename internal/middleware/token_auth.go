package middleware

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/finance-tracker/internal/repository"
    "github.com/iliyamo/finance-tracker/internal/utils"
)

// DeactivatedMessage is returned to accounts an admin has blocked.
const DeactivatedMessage = "Your account has been deactivated. Please contact an administrator."

// TokenAuth returns an Echo middleware that authenticates API requests.
// The bearer string must be a JWT signed with secret whose SHA-256 digest
// matches an unexpired personal access token row of the same user, so
// deleting the row revokes the token. The account must still exist and be
// active. On success the user and the token row are stored in the context
// and the token's last_used_at is refreshed.
func TokenAuth(secret string, tokens *repository.TokenRepo, users *repository.UserRepo, log *logrus.Logger) echo.MiddlewareFunc {
    unauthenticated := func(c echo.Context) error {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return unauthenticated(c)
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return unauthenticated(c)
            }

            ctx := c.Request().Context()
            tok, err := tokens.FindByHash(ctx, utils.HashToken(raw))
            if err != nil {
                if !errors.Is(err, repository.ErrNotFound) {
                    return err
                }
                return unauthenticated(c)
            }
            if tok.UserID != claims.UserID {
                return unauthenticated(c)
            }

            u, err := users.Find(ctx, tok.UserID, nil)
            if err != nil {
                if !errors.Is(err, repository.ErrNotFound) {
                    return err
                }
                return unauthenticated(c)
            }
            if !u.IsActive {
                return c.JSON(http.StatusForbidden, echo.Map{"message": DeactivatedMessage})
            }

            if err := tokens.Touch(ctx, tok.ID); err != nil {
                log.WithError(err).WithField("token_id", tok.ID).Warn("touch token")
            }
            SetUser(c, u)
            c.Set(tokenKey, tok)
            return next(c)
        }
    }
}
