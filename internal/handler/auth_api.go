package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/finance-tracker/internal/config"
    "github.com/iliyamo/finance-tracker/internal/dto"
    "github.com/iliyamo/finance-tracker/internal/middleware"
    "github.com/iliyamo/finance-tracker/internal/model"
    "github.com/iliyamo/finance-tracker/internal/queue"
    "github.com/iliyamo/finance-tracker/internal/repository"
    "github.com/iliyamo/finance-tracker/internal/request"
    "github.com/iliyamo/finance-tracker/internal/resource"
    "github.com/iliyamo/finance-tracker/internal/utils"
)

// AuthAPI issues and revokes personal access tokens.
type AuthAPI struct {
    Cfg        config.Config
    Users      *repository.UserRepo
    Tokens     *repository.TokenRepo
    Serializer resource.Serializer
    Events     Events
}

func NewAuthAPI(d Deps) *AuthAPI {
    return &AuthAPI{Cfg: d.Cfg, Users: d.Users, Tokens: d.Tokens, Serializer: d.serializer(), Events: d.events()}
}

// Login: check credentials and hand out a new token for the device.
func (h *AuthAPI) Login(c echo.Context) error {
    var in request.Login
    if err := request.Bind(c, &in); err != nil {
        return err
    }

    ctx, cancel := dbContext(c)
    defer cancel()

    u, err := authenticate(ctx, h.Users, in, h.Cfg.BcryptCost)
    if err != nil {
        return err
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"message": middleware.DeactivatedMessage})
    }

    token, err := h.issue(c, u, deviceName(c, in.DeviceName.String()))
    if err != nil {
        return err
    }
    middleware.SetUser(c, u)
    h.Events.emit(c, queue.ActionLogin, "user", u.ID, u.ID)
    return c.JSON(http.StatusOK, echo.Map{"token": token, "user": h.Serializer.User(u, resource.Options{})})
}

// Register: create a regular account and log it in.
func (h *AuthAPI) Register(c echo.Context) error {
    var in request.Register
    if err := request.Bind(c, &in); err != nil {
        return err
    }
    d, err := dto.UserFromRegister(in, h.Cfg.BcryptCost)
    if err != nil {
        return inputError(err)
    }

    ctx, cancel := dbContext(c)
    defer cancel()

    u, err := h.Users.Create(ctx, d.ToAttributes())
    if err != nil {
        return emailTaken(err)
    }
    token, err := h.issue(c, u, deviceName(c, in.DeviceName.String()))
    if err != nil {
        return err
    }
    middleware.SetUser(c, u)
    h.Events.emit(c, queue.ActionCreated, "user", u.ID, u.ID)
    return c.JSON(http.StatusCreated, echo.Map{"token": token, "user": h.Serializer.User(u, resource.Options{})})
}

// User returns the account behind the bearer token.
func (h *AuthAPI) User(c echo.Context) error {
    return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(middleware.CurrentUser(c), resource.Options{})))
}

// Logout revokes the token used for this request.
func (h *AuthAPI) Logout(c echo.Context) error {
    ctx, cancel := dbContext(c)
    defer cancel()
    if t := middleware.CurrentToken(c); t != nil {
        if err := h.Tokens.Delete(ctx, t.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
            return err
        }
    }
    u := middleware.CurrentUser(c)
    h.Events.emit(c, queue.ActionLogout, "user", u.ID, u.ID)
    return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out"})
}

// LogoutAll revokes every token of the account.
func (h *AuthAPI) LogoutAll(c echo.Context) error {
    ctx, cancel := dbContext(c)
    defer cancel()
    u := middleware.CurrentUser(c)
    if err := h.Tokens.DeleteForUser(ctx, u.ID); err != nil {
        return err
    }
    h.Events.emit(c, queue.ActionLogout, "user", u.ID, u.ID)
    return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out from all devices"})
}

// issue signs a token for u and stores its digest.
func (h *AuthAPI) issue(c echo.Context, u *model.User, name string) (string, error) {
    tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.TokenTTLMin)
    if err != nil {
        return "", err
    }
    ctx, cancel := dbContext(c)
    defer cancel()
    if _, err := h.Tokens.Create(ctx, u.ID, name, tok.Hash, tok.Exp); err != nil {
        return "", err
    }
    return tok.Token, nil
}

// deviceName labels a token: the name the client sent, else its user agent.
func deviceName(c echo.Context, requested string) string {
    name := strings.TrimSpace(requested)
    if name == "" {
        name = strings.TrimSpace(c.Request().UserAgent())
    }
    if name == "" {
        name = "Unknown Device"
    }
    if len(name) > 255 {
        name = name[:255]
    }
    return name
}
