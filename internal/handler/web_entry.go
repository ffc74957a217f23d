package handler

import (
	"fmt"
	"strconv"
	"time"

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
)

// WebEntry serves the expense or income pages.
type WebEntry[T model.Entry] struct {
	Repo       *repository.EntryRepo[T]
	Categories *repository.CategoryRepo
	Users      *repository.UserRepo
	Events     Events
	kind       model.Kind
}

func NewWebEntry[T model.Entry](d Deps, repo *repository.EntryRepo[T]) *WebEntry[T] {
	return &WebEntry[T]{Repo: repo, Categories: d.Categories, Users: d.Users, Events: d.events(), kind: model.KindOf[T]()}
}

type entryIndex[T model.Entry] struct {
	Kind       model.Kind
	Page       resource.Collection[T]
	Categories []model.Category
	Filters    map[string]string
}

type entryForm struct {
	Kind        model.Kind
	ID          uint64
	Amount      string
	Description string
	Date        string
	CategoryID  string
	Categories  []model.Category
}

type entryShow struct {
	Kind  model.Kind
	Entry model.EntryView
}

func (h *WebEntry[T]) index() string { return "/" + h.kind.Plural }

func (h *WebEntry[T]) Index(c echo.Context) error {
	a := middleware.Actor(c)
	p := request.ParseList(c, request.WebPerPage, repository.EntryIncludes)
	p.Includes = repository.EntryIncludes

	ctx, cancel := dbContext(c)
	defer cancel()

	page, err := h.Repo.List(ctx, entryQuery(p, a))
	if err != nil {
		return err
	}
	cats, err := h.Categories.ForOwner(ctx, a.Scope())
	if err != nil {
		return err
	}
	data := entryIndex[T]{
		Kind:       h.kind,
		Page:       resource.Paginate(page, page.Items, c.Request().URL.Path, c.QueryParams()),
		Categories: cats,
		Filters:    filters(c, "search", "category_id", "date_start", "date_end", "amount_min", "amount_max"),
	}
	return render(c, "entries_index", h.kind.Title+"s", data)
}

func (h *WebEntry[T]) Create(c echo.Context) error {
	form, err := h.form(c, model.EntryView{Date: time.Now()})
	if err != nil {
		return err
	}
	form.Amount = ""
	return render(c, "entries_form", "New "+h.kind.Singular, form)
}

func (h *WebEntry[T]) Store(c echo.Context) error {
	a := middleware.Actor(c)
	formPath := h.index() + "/create"
	var in request.StoreEntry
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, formPath, h.index())
	}
	d, err := dto.EntryFromStore(in, a)
	if err != nil {
		return fail(c, inputError(err), formPath, h.index())
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := checkOwner(ctx, h.Users, *d.UserID, a); err != nil {
		return fail(c, err, formPath, h.index())
	}
	if err := checkCategory(ctx, h.Categories, *d.CategoryID, *d.UserID, a); err != nil {
		return fail(c, err, formPath, h.index())
	}
	rec, err := h.Repo.Create(ctx, d.ToAttributes())
	if err != nil {
		return err
	}
	entryEvent(h.Events, c, queue.ActionCreated, *rec)
	return redirect(c, h.index(), session.Success, h.kind.Title+" created successfully!")
}

func (h *WebEntry[T]) Show(c echo.Context) error {
	rec, err := h.find(c, policy.Records.View, repository.EntryIncludes)
	if err != nil {
		return fail(c, err, h.index(), h.index())
	}
	v := (*rec).View()
	return render(c, "entries_show", v.Description, entryShow{Kind: h.kind, Entry: v})
}

func (h *WebEntry[T]) Edit(c echo.Context) error {
	rec, err := h.find(c, policy.Records.Update, nil)
	if err != nil {
		return fail(c, err, h.index(), h.index())
	}
	form, err := h.form(c, (*rec).View())
	if err != nil {
		return err
	}
	return render(c, "entries_form", "Edit "+h.kind.Singular, form)
}

// Update takes the full edit form. The category must belong to the
// record's owner unless an admin is editing.
func (h *WebEntry[T]) Update(c echo.Context) error {
	a := middleware.Actor(c)
	rec, err := h.find(c, policy.Records.Update, nil)
	if err != nil {
		return fail(c, err, h.index(), h.index())
	}
	formPath := fmt.Sprintf("%s/%d/edit", h.index(), (*rec).View().ID)
	var in request.StoreEntry
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, formPath, h.index())
	}
	d, err := dto.EntryFromUpdate(in.Update())
	if err != nil {
		return fail(c, inputError(err), formPath, h.index())
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := checkCategory(ctx, h.Categories, *d.CategoryID, (*rec).OwnerID(), a); err != nil {
		return fail(c, err, formPath, h.index())
	}
	if err := h.Repo.Update(ctx, rec, d.ToAttributes()); err != nil {
		return err
	}
	entryEvent(h.Events, c, queue.ActionUpdated, *rec)
	return redirect(c, h.index(), session.Success, h.kind.Title+" updated successfully!")
}

func (h *WebEntry[T]) Destroy(c echo.Context) error {
	rec, err := h.find(c, policy.Records.Delete, nil)
	if err != nil {
		return fail(c, err, h.index(), h.index())
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.Repo.Delete(ctx, (*rec).View().ID); err != nil {
		return err
	}
	entryEvent(h.Events, c, queue.ActionDeleted, *rec)
	return redirect(c, h.index(), session.Success, h.kind.Title+" deleted successfully!")
}

// find loads the :id record and applies check to it.
func (h *WebEntry[T]) find(c echo.Context, check func(policy.ActingUser, policy.Owned) error, includes []string) (*T, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	rec, err := h.Repo.Find(ctx, id, includes)
	if err != nil {
		return nil, err
	}
	if err := check(middleware.Actor(c), *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// form fills the edit form from v. The category choices are those of the
// record's owner, or the actor's for a new record.
func (h *WebEntry[T]) form(c echo.Context, v model.EntryView) (entryForm, error) {
	a := middleware.Actor(c)
	owner := a.Scope()
	if v.ID != 0 && a.IsAdmin() {
		owner = &v.UserID
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	cats, err := h.Categories.ForOwner(ctx, owner)
	if err != nil {
		return entryForm{}, err
	}
	f := entryForm{
		Kind:        h.kind,
		ID:          v.ID,
		Amount:      v.Amount.StringFixed(2),
		Description: v.Description,
		Date:        v.Date.Format(resource.DateLayout),
		Categories:  cats,
	}
	if v.CategoryID != 0 {
		f.CategoryID = strconv.FormatUint(v.CategoryID, 10)
	}
	return f, nil
}
