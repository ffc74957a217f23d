package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/finance-tracker/internal/logging"
)

// RequestLogger writes one entry per request: info for successes, warn for
// client errors and error for server errors. It must wrap the handler
// chain from the outside so the final status is known.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the response so the status is final
                c.Error(err)
            }
            req := c.Request()
            res := c.Response()
            entry := log.WithFields(logrus.Fields{
                "method":            req.Method,
                "path":              req.URL.Path,
                "status":            res.Status,
                "latency_ms":        time.Since(start).Milliseconds(),
                "remote_ip":         c.RealIP(),
                logging.FieldUserID: userID(c),
            })
            switch {
            case res.Status >= 500:
                if err != nil {
                    entry = entry.WithError(err)
                }
                entry.Error("request")
            case res.Status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
