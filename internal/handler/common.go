// Package handler defines the HTTP handlers of the JSON API and the web
// pages.
package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/finance-tracker/internal/middleware"
    "github.com/iliyamo/finance-tracker/internal/model"
    "github.com/iliyamo/finance-tracker/internal/policy"
    "github.com/iliyamo/finance-tracker/internal/queue"
    "github.com/iliyamo/finance-tracker/internal/repository"
    "github.com/iliyamo/finance-tracker/internal/request"
    "github.com/iliyamo/finance-tracker/internal/service"
)

// dbTimeout bounds every database round trip made by a handler.
const dbTimeout = 5 * time.Second

// Messages shared by the API and the web pages.
const (
    msgCategoryNotOwned = "The category does not belong to you"
    msgCategoryInvalid  = "The selected category id is invalid."
    msgUserInvalid      = "The selected user id is invalid."
    msgEmailTaken       = "The email has already been taken."
    msgBadCredentials   = "The provided credentials are incorrect."
    msgPasswordWrong    = "The password is incorrect."
    msgCategoryInUse    = "Cannot delete a category that is in use"
)

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// parseID reads the :id path parameter. Anything that is not a positive
// integer cannot name a row and is reported as not found.
func parseID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
    if err != nil || id == 0 {
        return 0, repository.ErrNotFound
    }
    return id, nil
}

// checkCategory verifies that categoryID names an existing category owned
// by owner. Admins may file rows under anybody's category.
func checkCategory(ctx context.Context, categories *repository.CategoryRepo, categoryID, owner uint64, a policy.ActingUser) error {
    cat, err := categories.Find(ctx, categoryID, nil)
    if errors.Is(err, repository.ErrNotFound) {
        return request.NewValidationError("category_id", msgCategoryInvalid)
    }
    if err != nil {
        return err
    }
    if cat.UserID != owner && !a.IsAdmin() {
        return &Conflict{Status: http.StatusForbidden, Message: msgCategoryNotOwned}
    }
    return nil
}

// checkOwner verifies that an admin writing on behalf of someone else names
// an existing account.
func checkOwner(ctx context.Context, users *repository.UserRepo, owner uint64, a policy.ActingUser) error {
    if owner == a.ID {
        return nil
    }
    _, err := users.Find(ctx, owner, nil)
    if errors.Is(err, repository.ErrNotFound) {
        return request.NewValidationError("user_id", msgUserInvalid)
    }
    return err
}

// emailTaken turns the unique email violation into a field error.
func emailTaken(err error) error {
    if errors.Is(err, repository.ErrEmailExists) {
        return request.NewValidationError("email", msgEmailTaken)
    }
    return err
}

// inputError reports a value that passed validation but could not be
// converted, such as an id that overflows. DTO errors carry the field name
// as a "field: " prefix.
func inputError(err error) error {
    if errors.Is(err, bcrypt.ErrPasswordTooLong) {
        return request.NewValidationError("password", "The password field must not be greater than 72 characters.")
    }
    field, _, ok := strings.Cut(err.Error(), ": ")
    if !ok || strings.ContainsAny(field, " \t") {
        return err
    }
    return request.NewValidationError(field, fmt.Sprintf("The %s field is invalid.", strings.ReplaceAll(field, "_", " ")))
}

// Events records ledger changes on the audit queue. Failures never fail the
// request; they are only logged.
type Events struct {
    Publisher service.Publisher
    Log       *logrus.Logger
}

func (ev Events) emit(c echo.Context, action, resource string, id, owner uint64) {
    if ev.Publisher == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 3*time.Second)
    defer cancel()
    e := queue.NewLedgerEvent(action, resource, id, owner, middleware.Actor(c).ID)
    if err := ev.Publisher.Publish(ctx, e); err != nil && ev.Log != nil {
        ev.Log.WithError(err).WithField("action", action).Warn("ledger event not published")
    }
}

// entryEvent is emit for a ledger record.
func entryEvent[T model.Entry](ev Events, c echo.Context, action string, rec T) {
    v := rec.View()
    ev.emit(c, action, model.KindOf[T]().Singular, v.ID, v.UserID)
}

// listPath is the absolute URL of the current listing, without its query.
func listPath(c echo.Context, baseURL string) string {
    base := strings.TrimRight(baseURL, "/")
    if base == "" {
        base = c.Scheme() + "://" + c.Request().Host
    }
    return base + c.Request().URL.Path
}

func categoryIDs(items []model.Category) []uint64 {
    ids := make([]uint64, 0, len(items))
    for _, it := range items {
        ids = append(ids, it.ID)
    }
    return ids
}

func userIDs(items []model.User) []uint64 {
    ids := make([]uint64, 0, len(items))
    for _, it := range items {
        ids = append(ids, it.ID)
    }
    return ids
}
