package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/resource"
	"github.com/iliyamo/finance-tracker/internal/storage"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

// ProfileAPI lets the token owner manage their own account.
type ProfileAPI struct {
	Users      *repository.UserRepo
	Images     *storage.ImageStore
	BcryptCost int
	Serializer resource.Serializer
	Events     Events
}

func NewProfileAPI(d Deps) *ProfileAPI {
	return &ProfileAPI{Users: d.Users, Images: d.Images, BcryptCost: d.Cfg.BcryptCost, Serializer: d.serializer(), Events: d.events()}
}

func (h *ProfileAPI) Show(c echo.Context) error {
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(middleware.CurrentUser(c), resource.Options{})))
}

func (h *ProfileAPI) Update(c echo.Context) error {
	u := middleware.CurrentUser(c)
	var in request.UpdateProfile
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.ProfileFromUpdate(in, h.BcryptCost)
	if err != nil {
		return inputError(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Users.Update(ctx, u, d.ToAttributes()); err != nil {
		return emailTaken(err)
	}
	h.Events.emit(c, queue.ActionUpdated, "user", u.ID, u.ID)
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(u, resource.Options{})))
}

// UpdateImage replaces the profile picture with the multipart profile_image
// file.
func (h *ProfileAPI) UpdateImage(c echo.Context) error {
	u := middleware.CurrentUser(c)
	name, err := receiveImage(c, h.Images, false)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := replaceImage(ctx, h.Users, h.Images, u, name); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionUpdated, "user", u.ID, u.ID)
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(u, resource.Options{})))
}

// Destroy deletes the account after checking its password.
func (h *ProfileAPI) Destroy(c echo.Context) error {
	u := middleware.CurrentUser(c)
	var in request.DeleteProfile
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	if !utils.VerifyPassword(u.Password, string(in.Password)) {
		return request.NewValidationError("password", msgPasswordWrong)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := removeAccount(ctx, h.Users, h.Images, u); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionDeleted, "user", u.ID, u.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Account successfully deleted"})
}
