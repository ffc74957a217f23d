package handler

import (
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/finance-tracker/internal/policy"
    "github.com/iliyamo/finance-tracker/internal/repository"
    "github.com/iliyamo/finance-tracker/internal/request"
)

// Conflict is a request that is well formed but cannot be carried out.
type Conflict struct {
    Status  int
    Message string
}

func (e *Conflict) Error() string { return e.Message }

// ErrorPage is the template data of the HTML error page.
type ErrorPage struct {
    Status  int
    Title   string
    Message string
}

// IsAPI reports whether c belongs to the JSON API.
func IsAPI(c echo.Context) bool {
    p := c.Request().URL.Path
    return p == "/v1" || strings.HasPrefix(p, "/v1/")
}

// ErrorHandler renders every error returned by a handler or middleware:
// JSON {message, errors?} on /v1 and an HTML page elsewhere. Unexpected
// errors are logged and reported as a bare 500.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status, body := classify(err)
        if status == http.StatusInternalServerError {
            log.WithError(err).
                WithField("method", c.Request().Method).
                WithField("path", c.Request().URL.Path).
                Error("unhandled error")
        }

        var werr error
        switch {
        case c.Request().Method == http.MethodHead:
            werr = c.NoContent(status)
        case IsAPI(c):
            werr = c.JSON(status, body)
        default:
            ep := ErrorPage{Status: status, Title: http.StatusText(status), Message: fmt.Sprint(body["message"])}
            if werr = c.Render(status, "error", page(c, ep.Title, ep)); werr != nil {
                werr = c.String(status, ep.Message)
            }
        }
        if werr != nil {
            log.WithError(werr).Error("write error response")
        }
    }
}

// classify maps an error onto a status and a JSON body.
func classify(err error) (int, echo.Map) {
    var (
        ve   *request.ValidationError
        den  *policy.Denial
        conf *Conflict
        he   *echo.HTTPError
    )
    switch {
    case errors.As(err, &ve):
        return http.StatusUnprocessableEntity, echo.Map{"message": ve.Message(), "errors": ve.Errors}
    case errors.As(err, &den):
        return http.StatusForbidden, echo.Map{"message": den.Message}
    case errors.As(err, &conf):
        return conf.Status, echo.Map{"message": conf.Message}
    case errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound, echo.Map{"message": "Not Found."}
    case errors.Is(err, repository.ErrInUse):
        return http.StatusUnprocessableEntity, echo.Map{"message": msgCategoryInUse}
    case errors.As(err, &he):
        msg := fmt.Sprint(he.Message)
        if he.Code == http.StatusNotFound {
            msg = "Not Found."
        }
        return he.Code, echo.Map{"message": msg}
    }
    return http.StatusInternalServerError, echo.Map{"message": "Server Error"}
}
