package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/config"
	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/session"
)

// WebAuth handles the login, registration and logout pages.
type WebAuth struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *session.Manager
	Events   Events
}

func NewWebAuth(d Deps) *WebAuth {
	return &WebAuth{Cfg: d.Cfg, Users: d.Users, Sessions: d.Sessions, Events: d.events()}
}

func (h *WebAuth) ShowLogin(c echo.Context) error {
	return render(c, "login", "Log in", nil)
}

func (h *WebAuth) Login(c echo.Context) error {
	var in request.Login
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, "/login", "/login")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := authenticate(ctx, h.Users, in, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err, "/login", "/login")
	}
	if !u.IsActive {
		return redirect(c, "/login", session.Error, middleware.DeactivatedMessage)
	}
	remember, _ := in.Remember.Bool()
	if err := h.Sessions.Login(c, u.ID, remember); err != nil {
		return err
	}
	middleware.SetUser(c, u)
	h.Events.emit(c, queue.ActionLogin, "user", u.ID, u.ID)
	return c.Redirect(http.StatusFound, "/dashboard")
}

func (h *WebAuth) ShowRegister(c echo.Context) error {
	return render(c, "register", "Register", nil)
}

func (h *WebAuth) Register(c echo.Context) error {
	var in request.Register
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, "/register", "/register")
	}
	d, err := dto.UserFromRegister(in, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, inputError(err), "/register", "/register")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, d.ToAttributes())
	if err != nil {
		return fail(c, emailTaken(err), "/register", "/register")
	}
	if err := h.Sessions.Login(c, u.ID, false); err != nil {
		return err
	}
	middleware.SetUser(c, u)
	h.Events.emit(c, queue.ActionCreated, "user", u.ID, u.ID)
	return redirect(c, "/dashboard", session.Success, "Welcome, "+u.Name+"!")
}

func (h *WebAuth) Logout(c echo.Context) error {
	if u := middleware.CurrentUser(c); u != nil {
		h.Events.emit(c, queue.ActionLogout, "user", u.ID, u.ID)
	}
	if err := h.Sessions.Logout(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/login")
}

// Home sends visitors to the dashboard or the login page.
func (h *WebAuth) Home(c echo.Context) error {
	if session.Get(c).UserID() != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return c.Redirect(http.StatusFound, "/login")
}
