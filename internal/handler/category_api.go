package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/resource"
)

// CategoryAPI serves /v1/categories.
type CategoryAPI struct {
	Categories *repository.CategoryRepo
	Users      *repository.UserRepo
	Serializer resource.Serializer
	Events     Events
	BaseURL    string
}

func NewCategoryAPI(d Deps) *CategoryAPI {
	return &CategoryAPI{Categories: d.Categories, Users: d.Users, Serializer: d.serializer(), Events: d.events(), BaseURL: d.Cfg.AppURL}
}

func (h *CategoryAPI) Index(c echo.Context) error {
	a := middleware.Actor(c)
	if err := policy.Records.ViewAny(a); err != nil {
		return err
	}
	p := request.ParseList(c, request.APIPerPage, repository.CategoryIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	page, err := h.Categories.List(ctx, repository.CategoryQuery{ListOptions: p.ListOptions, OwnerID: p.Owner(a)})
	if err != nil {
		return err
	}
	opts := resource.Options{Includes: p.Includes}
	if p.IncludeCounts {
		if opts.Counts, err = h.Categories.Counts(ctx, categoryIDs(page.Items)); err != nil {
			return err
		}
	}
	data := h.Serializer.Categories(page.Items, opts)
	return c.JSON(http.StatusOK, resource.Paginate(page, data, listPath(c, h.BaseURL), c.QueryParams()))
}

func (h *CategoryAPI) Store(c echo.Context) error {
	a := middleware.Actor(c)
	if err := policy.Records.Create(a); err != nil {
		return err
	}
	var in request.StoreCategory
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.CategoryFromStore(in, a)
	if err != nil {
		return inputError(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := checkOwner(ctx, h.Users, *d.UserID, a); err != nil {
		return err
	}
	cat, err := h.Categories.Create(ctx, d.ToAttributes())
	if err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionCreated, "category", cat.ID, cat.UserID)
	return c.JSON(http.StatusCreated, resource.Wrap(h.Serializer.Category(cat, resource.Options{})))
}

func (h *CategoryAPI) Show(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p := request.ParseList(c, request.APIPerPage, repository.CategoryIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	cat, err := h.Categories.Find(ctx, id, p.Includes)
	if err != nil {
		return err
	}
	if err := policy.Records.View(middleware.Actor(c), cat); err != nil {
		return err
	}
	opts := resource.Options{Includes: p.Includes}
	if p.IncludeCounts {
		if opts.Counts, err = h.Categories.Counts(ctx, []uint64{cat.ID}); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.Category(cat, opts)))
}

func (h *CategoryAPI) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a := middleware.Actor(c)

	ctx, cancel := dbContext(c)
	defer cancel()

	cat, err := h.Categories.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Records.Update(a, cat); err != nil {
		return err
	}
	var in request.UpdateCategory
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.CategoryFromUpdate(in, a)
	if err != nil {
		return inputError(err)
	}
	if d.UserID != nil {
		if err := checkOwner(ctx, h.Users, *d.UserID, a); err != nil {
			return err
		}
	}
	if err := h.Categories.Update(ctx, cat, d.ToAttributes()); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionUpdated, "category", cat.ID, cat.UserID)
	return c.JSON(http.StatusOK, resource.Wrap(h.Serializer.Category(cat, resource.Options{})))
}

// Destroy refuses with 422 while an expense or income uses the category.
func (h *CategoryAPI) Destroy(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	cat, err := h.Categories.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Records.Delete(middleware.Actor(c), cat); err != nil {
		return err
	}
	if err := h.Categories.Delete(ctx, cat.ID); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionDeleted, "category", cat.ID, cat.UserID)
	return c.NoContent(http.StatusNoContent)
}
