package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/resource"
	"github.com/iliyamo/finance-tracker/internal/session"
	"github.com/iliyamo/finance-tracker/internal/storage"
)

const usersPath = "/users"

// WebUser serves the user management pages. The routes are limited to
// admins.
type WebUser struct {
	Users      *repository.UserRepo
	Images     *storage.ImageStore
	BcryptCost int
	Events     Events
}

func NewWebUser(d Deps) *WebUser {
	return &WebUser{Users: d.Users, Images: d.Images, BcryptCost: d.Cfg.BcryptCost, Events: d.events()}
}

type userIndex struct {
	Page    resource.Collection[model.User]
	Counts  map[uint64]repository.RelationCounts
	Filters map[string]string
}

type userShow struct {
	Target *model.User
	Counts repository.RelationCounts
}

type userEdit struct {
	Target *model.User
	Self   bool
}

func (h *WebUser) Index(c echo.Context) error {
	if err := policy.Users.ViewAny(middleware.Actor(c)); err != nil {
		return err
	}
	p := request.ParseList(c, request.WebPerPage, repository.UserIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	page, err := h.Users.List(ctx, repository.UserQuery{ListOptions: p.ListOptions, Active: p.Active, Role: p.Role})
	if err != nil {
		return err
	}
	counts, err := h.Users.Counts(ctx, userIDs(page.Items))
	if err != nil {
		return err
	}
	data := userIndex{
		Page:    resource.Paginate(page, page.Items, c.Request().URL.Path, c.QueryParams()),
		Counts:  counts,
		Filters: filters(c, "search", "role"),
	}
	return render(c, "users_index", "Users", data)
}

func (h *WebUser) Create(c echo.Context) error {
	if err := policy.Users.Create(middleware.Actor(c)); err != nil {
		return err
	}
	return render(c, "users_create", "New user", nil)
}

// Store creates an account, with an optional profile picture.
func (h *WebUser) Store(c echo.Context) error {
	if err := policy.Users.Create(middleware.Actor(c)); err != nil {
		return fail(c, err, usersPath, usersPath)
	}
	formPath := usersPath + "/create"
	var in request.StoreUser
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, formPath, usersPath)
	}
	d, err := dto.UserFromStore(in, h.BcryptCost)
	if err != nil {
		return fail(c, inputError(err), formPath, usersPath)
	}
	image, err := receiveImage(c, h.Images, true)
	if err != nil {
		return fail(c, err, formPath, usersPath)
	}
	if image != "" {
		d.ProfileImage = &image
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, d.ToAttributes())
	if err != nil {
		_ = h.Images.Delete(image)
		return fail(c, emailTaken(err), formPath, usersPath)
	}
	h.Events.emit(c, queue.ActionCreated, "user", u.ID, u.ID)
	return redirect(c, usersPath, session.Success, "User created successfully")
}

func (h *WebUser) Show(c echo.Context) error {
	u, err := h.find(c, policy.Users.View)
	if err != nil {
		return fail(c, err, usersPath, usersPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	counts, err := h.Users.Counts(ctx, []uint64{u.ID})
	if err != nil {
		return err
	}
	return render(c, "users_show", u.Name, userShow{Target: u, Counts: counts[u.ID]})
}

func (h *WebUser) Edit(c echo.Context) error {
	u, err := h.find(c, policy.Users.Update)
	if err != nil {
		return fail(c, err, usersPath, usersPath)
	}
	return render(c, "users_edit", "Edit "+u.Name, userEdit{Target: u, Self: u.ID == middleware.Actor(c).ID})
}

// Update changes only the role when an admin edits someone else. Editing
// one's own account changes name, email and password instead.
func (h *WebUser) Update(c echo.Context) error {
	a := middleware.Actor(c)
	u, err := h.find(c, policy.Users.Update)
	if err != nil {
		return fail(c, err, usersPath, usersPath)
	}
	formPath := fmt.Sprintf("%s/%d/edit", usersPath, u.ID)

	var attrs model.Attributes
	self := u.ID == a.ID
	if a.IsAdmin() && !self {
		var in request.UpdateRole
		if err := request.Bind(c, &in); err != nil {
			return fail(c, err, formPath, usersPath)
		}
		attrs = dto.RoleChange(in).ToAttributes()
	} else {
		var in request.UpdateUser
		if err := request.Bind(c, &in); err != nil {
			return fail(c, err, formPath, usersPath)
		}
		in.Role, in.IsActive = nil, nil
		d, err := dto.UserFromUpdate(in, a, h.BcryptCost)
		if err != nil {
			return fail(c, inputError(err), formPath, usersPath)
		}
		attrs = d.ToAttributes()
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Users.Update(ctx, u, attrs); err != nil {
		return fail(c, emailTaken(err), formPath, usersPath)
	}
	h.Events.emit(c, queue.ActionUpdated, "user", u.ID, u.ID)
	if self {
		return redirect(c, "/profile", session.Success, "Profile updated successfully")
	}
	return redirect(c, usersPath, session.Success, "User role updated successfully")
}

func (h *WebUser) Destroy(c echo.Context) error {
	u, err := h.find(c, policy.Users.Delete)
	if err != nil {
		return fail(c, err, usersPath, usersPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := removeAccount(ctx, h.Users, h.Images, u); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionDeleted, "user", u.ID, u.ID)
	return redirect(c, usersPath, session.Success, "User deleted successfully")
}

func (h *WebUser) ToggleActive(c echo.Context) error {
	u, err := h.find(c, policy.Users.ToggleActive)
	if err != nil {
		return fail(c, err, usersPath, usersPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Users.Update(ctx, u, model.Attributes{"is_active": !u.IsActive}); err != nil {
		return err
	}
	h.Events.emit(c, toggleAction(u), "user", u.ID, u.ID)
	state := "blocked"
	if u.IsActive {
		state = "activated"
	}
	return redirect(c, usersPath, session.Success, "User has been "+state+" successfully")
}

// find loads the :id account and applies check to it.
func (h *WebUser) find(c echo.Context, check func(policy.ActingUser, *model.User) error) (*model.User, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.Find(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if err := check(middleware.Actor(c), u); err != nil {
		return nil, err
	}
	return u, nil
}
