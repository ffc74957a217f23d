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
)

// EntryAPI serves /v1/expenses and /v1/incomes.
type EntryAPI[T model.Entry] struct {
	Repo       *repository.EntryRepo[T]
	Categories *repository.CategoryRepo
	Users      *repository.UserRepo
	Serializer resource.Serializer
	Events     Events
	BaseURL    string
}

func NewEntryAPI[T model.Entry](d Deps, repo *repository.EntryRepo[T]) *EntryAPI[T] {
	return &EntryAPI[T]{
		Repo:       repo,
		Categories: d.Categories,
		Users:      d.Users,
		Serializer: d.serializer(),
		Events:     d.events(),
		BaseURL:    d.Cfg.AppURL,
	}
}

func (h *EntryAPI[T]) Index(c echo.Context) error {
	a := middleware.Actor(c)
	if err := policy.Records.ViewAny(a); err != nil {
		return err
	}
	p := request.ParseList(c, request.APIPerPage, repository.EntryIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	page, err := h.Repo.List(ctx, entryQuery(p, a))
	if err != nil {
		return err
	}
	data := resource.SerializeAll(h.Serializer, page.Items)
	return c.JSON(http.StatusOK, resource.Paginate(page, data, listPath(c, h.BaseURL), c.QueryParams()))
}

// Store files a new record. The category must exist and belong to the
// record's owner unless an admin is writing.
func (h *EntryAPI[T]) Store(c echo.Context) error {
	a := middleware.Actor(c)
	if err := policy.Records.Create(a); err != nil {
		return err
	}
	var in request.StoreEntry
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.EntryFromStore(in, a)
	if err != nil {
		return inputError(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := checkOwner(ctx, h.Users, *d.UserID, a); err != nil {
		return err
	}
	if err := checkCategory(ctx, h.Categories, *d.CategoryID, *d.UserID, a); err != nil {
		return err
	}
	rec, err := h.Repo.Create(ctx, d.ToAttributes())
	if err != nil {
		return err
	}
	entryEvent(h.Events, c, queue.ActionCreated, *rec)
	return c.JSON(http.StatusCreated, resource.Wrap(resource.Serialize(h.Serializer, *rec)))
}

func (h *EntryAPI[T]) Show(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p := request.ParseList(c, request.APIPerPage, repository.EntryIncludes)

	ctx, cancel := dbContext(c)
	defer cancel()

	rec, err := h.Repo.Find(ctx, id, p.Includes)
	if err != nil {
		return err
	}
	if err := policy.Records.View(middleware.Actor(c), *rec); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resource.Wrap(resource.Serialize(h.Serializer, *rec)))
}

// Update changes the fields present in the body. A new category is checked
// against the record's owner, who never changes.
func (h *EntryAPI[T]) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a := middleware.Actor(c)

	ctx, cancel := dbContext(c)
	defer cancel()

	rec, err := h.Repo.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Records.Update(a, *rec); err != nil {
		return err
	}
	var in request.UpdateEntry
	if err := request.Bind(c, &in); err != nil {
		return err
	}
	d, err := dto.EntryFromUpdate(in)
	if err != nil {
		return inputError(err)
	}
	if d.CategoryID != nil {
		if err := checkCategory(ctx, h.Categories, *d.CategoryID, (*rec).OwnerID(), a); err != nil {
			return err
		}
	}
	if err := h.Repo.Update(ctx, rec, d.ToAttributes()); err != nil {
		return err
	}
	entryEvent(h.Events, c, queue.ActionUpdated, *rec)
	return c.JSON(http.StatusOK, resource.Wrap(resource.Serialize(h.Serializer, *rec)))
}

func (h *EntryAPI[T]) Destroy(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	rec, err := h.Repo.Find(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := policy.Records.Delete(middleware.Actor(c), *rec); err != nil {
		return err
	}
	if err := h.Repo.Delete(ctx, id); err != nil {
		return err
	}
	entryEvent(h.Events, c, queue.ActionDeleted, *rec)
	return c.NoContent(http.StatusNoContent)
}

// entryQuery applies the listing filters; the owner filter follows the
// acting user's scope.
func entryQuery(p request.ListParams, a policy.ActingUser) repository.EntryQuery {
	return repository.EntryQuery{
		ListOptions: p.ListOptions,
		OwnerID:     p.Owner(a),
		CategoryID:  p.CategoryID,
		DateStart:   p.DateStart,
		DateEnd:     p.DateEnd,
		AmountMin:   p.AmountMin,
		AmountMax:   p.AmountMax,
	}
}
