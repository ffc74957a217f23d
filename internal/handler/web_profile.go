package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/session"
	"github.com/iliyamo/finance-tracker/internal/storage"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

const profilePath = "/profile"

// WebProfile serves the account page of the logged in user.
type WebProfile struct {
	Users      *repository.UserRepo
	Images     *storage.ImageStore
	Sessions   *session.Manager
	BcryptCost int
	Events     Events
}

func NewWebProfile(d Deps) *WebProfile {
	return &WebProfile{Users: d.Users, Images: d.Images, Sessions: d.Sessions, BcryptCost: d.Cfg.BcryptCost, Events: d.events()}
}

func (h *WebProfile) Edit(c echo.Context) error {
	return render(c, "profile", "Profile", nil)
}

func (h *WebProfile) Update(c echo.Context) error {
	u := middleware.CurrentUser(c)
	var in request.UpdateProfile
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, profilePath, profilePath)
	}
	d, err := dto.ProfileFromUpdate(in, h.BcryptCost)
	if err != nil {
		return fail(c, inputError(err), profilePath, profilePath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Users.Update(ctx, u, d.ToAttributes()); err != nil {
		return fail(c, emailTaken(err), profilePath, profilePath)
	}
	h.Events.emit(c, queue.ActionUpdated, "user", u.ID, u.ID)
	return redirect(c, profilePath, session.Success, "Profile updated successfully")
}

func (h *WebProfile) UpdateImage(c echo.Context) error {
	u := middleware.CurrentUser(c)
	name, err := receiveImage(c, h.Images, false)
	if err != nil {
		return fail(c, err, profilePath, profilePath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := replaceImage(ctx, h.Users, h.Images, u, name); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionUpdated, "user", u.ID, u.ID)
	return redirect(c, profilePath, session.Success, "Profile picture updated successfully")
}

// Destroy deletes the account after checking its password and ends the
// session.
func (h *WebProfile) Destroy(c echo.Context) error {
	u := middleware.CurrentUser(c)
	var in request.DeleteProfile
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, profilePath, profilePath)
	}
	if !utils.VerifyPassword(u.Password, string(in.Password)) {
		return fail(c, request.NewValidationError("password", msgPasswordWrong), profilePath, profilePath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := removeAccount(ctx, h.Users, h.Images, u); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionDeleted, "user", u.ID, u.ID)
	if err := h.Sessions.Logout(c); err != nil {
		return err
	}
	session.Get(c).Flash(session.Success, "Account successfully deleted")
	return c.Redirect(http.StatusFound, "/login")
}
