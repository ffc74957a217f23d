package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "gorm.io/gorm"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems. It pings the database and answers "ok" with 200, or
// 503 when the database cannot be reached.
func Health(db *gorm.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := dbContext(c)
        defer cancel()
        sqlDB, err := db.DB()
        if err == nil {
            err = sqlDB.PingContext(ctx)
        }
        if err != nil {
            return c.String(http.StatusServiceUnavailable, "database unavailable")
        }
        return c.String(http.StatusOK, "ok")
    }
}
