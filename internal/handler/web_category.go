package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/resource"
	"github.com/iliyamo/finance-tracker/internal/service"
	"github.com/iliyamo/finance-tracker/internal/session"
)

const categoriesPath = "/categories"

// WebCategory serves the category pages.
type WebCategory struct {
	Categories *repository.CategoryRepo
	Expenses   *repository.EntryRepo[model.Expense]
	Incomes    *repository.EntryRepo[model.Income]
	Users      *repository.UserRepo
	Events     Events
}

func NewWebCategory(d Deps) *WebCategory {
	return &WebCategory{Categories: d.Categories, Expenses: d.Expenses, Incomes: d.Incomes, Users: d.Users, Events: d.events()}
}

type categoryIndex struct {
	Page   resource.Collection[model.Category]
	Counts map[uint64]repository.RelationCounts
	Search string
}

type categoryForm struct {
	Category *model.Category
	Name     string
	OwnerID  string
	Owners   []model.User
}

type categoryShow struct {
	Category *model.Category
	Expenses []model.Expense
	Incomes  []model.Income
}

func (h *WebCategory) Index(c echo.Context) error {
	a := middleware.Actor(c)
	p := request.ParseList(c, request.WebPerPage, repository.CategoryIncludes)
	p.Includes = []string{"user"}

	ctx, cancel := dbContext(c)
	defer cancel()

	page, err := h.Categories.List(ctx, repository.CategoryQuery{ListOptions: p.ListOptions, OwnerID: p.Owner(a)})
	if err != nil {
		return err
	}
	counts, err := h.Categories.Counts(ctx, categoryIDs(page.Items))
	if err != nil {
		return err
	}
	data := categoryIndex{
		Page:   resource.Paginate(page, page.Items, c.Request().URL.Path, c.QueryParams()),
		Counts: counts,
		Search: p.Search,
	}
	return render(c, "categories_index", "Categories", data)
}

func (h *WebCategory) Create(c echo.Context) error {
	a := middleware.Actor(c)
	form := categoryForm{OwnerID: strconv.FormatUint(a.ID, 10)}
	if a.IsAdmin() {
		owners, err := h.owners(c)
		if err != nil {
			return err
		}
		form.Owners = owners
	}
	return render(c, "categories_form", "New category", form)
}

func (h *WebCategory) Store(c echo.Context) error {
	a := middleware.Actor(c)
	var in request.StoreCategory
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, categoriesPath+"/create", categoriesPath)
	}
	d, err := dto.CategoryFromStore(in, a)
	if err != nil {
		return fail(c, inputError(err), categoriesPath+"/create", categoriesPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := checkOwner(ctx, h.Users, *d.UserID, a); err != nil {
		return fail(c, err, categoriesPath+"/create", categoriesPath)
	}
	cat, err := h.Categories.Create(ctx, d.ToAttributes())
	if err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionCreated, "category", cat.ID, cat.UserID)
	return redirect(c, categoriesPath, session.Success, "Category created successfully!")
}

func (h *WebCategory) Show(c echo.Context) error {
	cat, err := h.find(c, policy.Records.View, []string{"user"})
	if err != nil {
		return fail(c, err, categoriesPath, categoriesPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	data := categoryShow{Category: cat}
	if data.Expenses, err = h.Expenses.ForCategory(ctx, cat.ID, service.LatestN); err != nil {
		return err
	}
	if data.Incomes, err = h.Incomes.ForCategory(ctx, cat.ID, service.LatestN); err != nil {
		return err
	}
	return render(c, "categories_show", cat.Name, data)
}

func (h *WebCategory) Edit(c echo.Context) error {
	cat, err := h.find(c, policy.Records.Update, nil)
	if err != nil {
		return fail(c, err, categoriesPath, categoriesPath)
	}
	form := categoryForm{Category: cat, Name: cat.Name, OwnerID: strconv.FormatUint(cat.UserID, 10)}
	if middleware.Actor(c).IsAdmin() {
		if form.Owners, err = h.owners(c); err != nil {
			return err
		}
	}
	return render(c, "categories_form", "Edit category", form)
}

func (h *WebCategory) Update(c echo.Context) error {
	a := middleware.Actor(c)
	cat, err := h.find(c, policy.Records.Update, nil)
	if err != nil {
		return fail(c, err, categoriesPath, categoriesPath)
	}
	form := fmt.Sprintf("%s/%d/edit", categoriesPath, cat.ID)
	var in request.UpdateCategory
	if err := request.Bind(c, &in); err != nil {
		return fail(c, err, form, categoriesPath)
	}
	d, err := dto.CategoryFromUpdate(in, a)
	if err != nil {
		return fail(c, inputError(err), form, categoriesPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if d.UserID != nil {
		if err := checkOwner(ctx, h.Users, *d.UserID, a); err != nil {
			return fail(c, err, form, categoriesPath)
		}
	}
	if err := h.Categories.Update(ctx, cat, d.ToAttributes()); err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionUpdated, "category", cat.ID, cat.UserID)
	return redirect(c, categoriesPath, session.Success, "Category updated successfully!")
}

func (h *WebCategory) Destroy(c echo.Context) error {
	cat, err := h.find(c, policy.Records.Delete, nil)
	if err != nil {
		return fail(c, err, categoriesPath, categoriesPath)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	err = h.Categories.Delete(ctx, cat.ID)
	if errors.Is(err, repository.ErrInUse) {
		return redirect(c, categoriesPath, session.Error, "This category cannot be deleted because it is in use!")
	}
	if err != nil {
		return err
	}
	h.Events.emit(c, queue.ActionDeleted, "category", cat.ID, cat.UserID)
	return redirect(c, categoriesPath, session.Success, "Category deleted successfully!")
}

// find loads the :id category and applies check to it.
func (h *WebCategory) find(c echo.Context, check func(policy.ActingUser, policy.Owned) error, includes []string) (*model.Category, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := dbContext(c)
	defer cancel()

	cat, err := h.Categories.Find(ctx, id, includes)
	if err != nil {
		return nil, err
	}
	if err := check(middleware.Actor(c), cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// owners lists the accounts an admin can file a category under.
func (h *WebCategory) owners(c echo.Context) ([]model.User, error) {
	ctx, cancel := dbContext(c)
	defer cancel()
	page, err := h.Users.List(ctx, repository.UserQuery{ListOptions: repository.ListOptions{Sort: "name", Direction: "asc", PerPage: 500}})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
