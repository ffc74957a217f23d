package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/resource"
	"github.com/iliyamo/finance-tracker/internal/storage"
)

// UserAPI serves /v1/users.
type UserAPI struct {
	Users      *repository.UserRepo
	Images     *storage.ImageStore
	BcryptCost int
	Serializer resource.Serializer
	Events     Events
	BaseURL    string
}

func NewUserAPI(d Deps) *UserAPI {
	return &UserAPI{
		Users:      d.Users,
		Images:     d.Images,
		BcryptCost: d.Cfg.BcryptCost,
		Serializer: d.serializer(),
		Events:     d.events(),
		BaseURL:    d.Cfg.AppURL,
	}
}

func (h *UserAPI) Index(c echo.Context) error {
	if err := policy.Users.ViewAny(middleware.Actor(c)); err != nil {
		return err
	}
	p := request.ParseList(c, request.APIPerPage, repository.UserIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	page, err := h.Users.List(ctx, repository.UserQuery{ListOptions: p.ListOptions, Active: p.Active, Role: p.Role})
	if err != nil {
		return err
	}
	opts := resource.Options{Includes: p.Includes}
	if p.IncludeCounts {
		if opts.Counts, err = h.Users.Counts(ctx, userIDs(page.Items)); err != nil {
			return err
		}
	}
	data := h.Serializer.Users(page.Items, opts)
	return c.JSON(http.StatusOK, resource.Paginate(page, data, listPath(c, h.BaseURL), c.QueryParams()))
}

func (h *UserAPI) Store(c echo.Context) error {
	if err := policy.Users.Create(middleware.Actor(c)); err != nil {
		return err
	}
	var in request.StoreUser
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.UserFromStore(in, h.BcryptCost)
	if err != nil {
		return inputError(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, d.ToAttributes())
	if err != nil {
		return emailTaken(err)
	}
	h.Events.emit(c, queue.ActionCreated, "user", u.ID, u.ID)
	return c.JSON(http.StatusCreated, resource.Wrap(h.Serializer.User(u, resource.Options{Includes: []string{"roles"}})))
}

func (h *UserAPI) Show(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p := request.ParseList(c, request.APIPerPage, repository.UserIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Find(ctx, id, p.Includes)
	if err != nil {
		return err
	}
	if err := policy.Users.View(middleware.Actor(c), u); err != nil {
		return err
	}
	opts := resource.Options{Includes: p.Includes}
	if p.IncludeCounts {
		if opts.Counts, err = h.Users.Counts(ctx, []uint64{u.ID}); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(u, opts)))
}

// Update edits an account. Role and active status are only taken from
// admins.
func (h *UserAPI) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a := middleware.Actor(c)

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Users.Update(a, u); err != nil {
		return err
	}
	var in request.UpdateUser
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.UserFromUpdate(in, a, h.BcryptCost)
	if err != nil {
		return inputError(err)
	}
	// deactivating is a block and follows the same rule as toggle-active
	if d.IsActive != nil && !*d.IsActive {
		if err := policy.Users.ToggleActive(a, u); err != nil {
			return err
		}
	}
	if err := h.Users.Update(ctx, u, d.ToAttributes()); err != nil {
		return emailTaken(err)
	}
	h.Events.emit(c, queue.ActionUpdated, "user", u.ID, u.ID)
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(u, resource.Options{})))
}

// Destroy removes an account with everything it owns. Admins cannot
// remove themselves.
func (h *UserAPI) Destroy(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Users.Delete(middleware.Actor(c), u); err != nil {
		return err
	}
	if err := removeAccount(ctx, h.Users, h.Images, u); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionDeleted, "user", u.ID, u.ID)
	return c.NoContent(http.StatusNoContent)
}

// ToggleActive blocks or unblocks an account.
func (h *UserAPI) ToggleActive(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Users.ToggleActive(middleware.Actor(c), u); err != nil {
		return err
	}
	if err := h.Users.Update(ctx, u, model.Attributes{"is_active": !u.IsActive}); err != nil {
		return err
	}
	h.Events.emit(c, toggleAction(u), "user", u.ID, u.ID)
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.User(u, resource.Options{})))
}
