package router

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
)

func location(rec interface{ Header() http.Header }) string {
	return rec.Header().Get(echo.HeaderLocation)
}

func TestWebGuestIsSentToLogin(t *testing.T) {
	a := newApp(t)
	b := a.browser()
	for _, p := range []string{"/", "/dashboard", "/expenses", "/categories/create", "/profile"} {
		rec := b.get(p)
		assert.Equal(t, http.StatusFound, rec.Code, p)
		assert.Equal(t, "/login", location(rec), p)
	}

	rec := b.get("/login")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/login"`)
}

func TestWebLoginAndDashboard(t *testing.T) {
	a := newApp(t)
	a.register("Alice", "alice@example.com")
	b := a.browser()
	b.login("alice@example.com")

	rec := b.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Dashboard</h1>")
	assert.Contains(t, rec.Body.String(), "Alice")

	// logged in users skip the guest pages
	rec = b.get("/login")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", location(rec))

	rec = b.post("/logout", url.Values{})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", location(rec))
	rec = b.get("/dashboard")
	assert.Equal(t, "/login", location(rec))
}

func TestWebLoginFailureKeepsInput(t *testing.T) {
	a := newApp(t)
	a.register("Alice", "alice@example.com")
	b := a.browser()

	rec := b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong-password"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", location(rec))

	rec = b.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The provided credentials are incorrect.")
	assert.Contains(t, rec.Body.String(), `value="alice@example.com"`)

	// errors are shown once
	rec = b.get("/login")
	assert.NotContains(t, rec.Body.String(), "The provided credentials are incorrect.")
}

func TestWebDeactivatedUserCannotLogIn(t *testing.T) {
	a := newApp(t)
	adminToken, _ := a.admin("Root", "root@example.com")
	_, aliceID := a.register("Alice", "alice@example.com")
	rec := a.api(http.MethodPatch, pathf("/v1/users/%d/toggle-active", aliceID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	b := a.browser()
	rec = b.post("/login", url.Values{"email": {"alice@example.com"}, "password": {testPassword}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", location(rec))
	rec = b.get("/login")
	assert.Contains(t, rec.Body.String(), middleware.DeactivatedMessage)
}

func TestWebCategoryLifecycle(t *testing.T) {
	a := newApp(t)
	_, aliceID := a.register("Alice", "alice@example.com")
	b := a.browser()
	b.login("alice@example.com")

	rec := b.post("/categories", url.Values{"name": {""}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/categories/create", location(rec))
	rec = b.get("/categories/create")
	assert.Contains(t, rec.Body.String(), "The name field is required.")

	rec = b.post("/categories", url.Values{"name": {"Groceries"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/categories", location(rec))
	rec = b.get("/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category created successfully!")
	assert.Contains(t, rec.Body.String(), "Groceries")

	page, err := a.deps.Categories.List(context.Background(), repository.CategoryQuery{OwnerID: &aliceID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	id := page.Items[0].ID

	rec = b.post(pathf("/categories/%d", id), url.Values{"_method": {"PUT"}, "name": {"Food"}})
	require.Equal(t, http.StatusFound, rec.Code)
	cat, err := a.deps.Categories.Find(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Food", cat.Name)

	rec = b.post(pathf("/categories/%d", id), url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/categories", location(rec))
	rec = b.get("/categories")
	assert.Contains(t, rec.Body.String(), "Category deleted successfully!")
	_, err = a.deps.Categories.Find(context.Background(), id, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWebCategoryInUseFlashesError(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	cat := a.category(token, "Groceries")
	a.entry(token, "expenses", "5", cat)

	b := a.browser()
	b.login("alice@example.com")
	rec := b.post(pathf("/categories/%d", cat), url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusFound, rec.Code)
	rec = b.get("/categories")
	assert.Contains(t, rec.Body.String(), "This category cannot be deleted because it is in use!")
}

func TestWebForeignCategoryIsRefused(t *testing.T) {
	a := newApp(t)
	a.register("Alice", "alice@example.com")
	bobToken, _ := a.register("Bob", "bob@example.com")
	bobs := a.category(bobToken, "Rent")

	b := a.browser()
	b.login("alice@example.com")
	rec := b.post(pathf("/categories/%d", bobs), url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/categories", location(rec))
	rec = b.get("/categories")
	assert.Contains(t, rec.Body.String(), "This action is unauthorized.")

	_, err := a.deps.Categories.Find(context.Background(), bobs, nil)
	assert.NoError(t, err)
}

func TestWebExpenseCreate(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	cat := a.category(token, "Groceries")

	b := a.browser()
	b.login("alice@example.com")
	rec := b.post("/expenses", url.Values{
		"amount": {"12.50"}, "description": {"Lunch"}, "date": {"2024-01-10"}, "category_id": {pathf("%d", cat)},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/expenses", location(rec))

	rec = b.get("/expenses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Expense created successfully!")
	assert.Contains(t, rec.Body.String(), "Lunch")

	n, err := a.deps.Expenses.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestWebUsersNeedAdmin(t *testing.T) {
	a := newApp(t)
	a.register("Alice", "alice@example.com")
	b := a.browser()
	b.login("alice@example.com")

	rec := b.get("/users")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "User does not have the right roles.")

	a.admin("Root", "root@example.com")
	admin := a.browser()
	admin.login("root@example.com")
	rec = admin.get("/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")
}

func TestWebAdminBlocksUser(t *testing.T) {
	a := newApp(t)
	_, aliceID := a.register("Alice", "alice@example.com")
	a.admin("Root", "root@example.com")
	admin := a.browser()
	admin.login("root@example.com")

	rec := admin.post(pathf("/users/%d/toggle-active", aliceID), url.Values{"_method": {"PATCH"}})
	require.Equal(t, http.StatusFound, rec.Code)

	u, err := a.deps.Users.Find(context.Background(), aliceID, nil)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	assert.Equal(t, model.RoleUser, u.Role)
}

func TestStaticAssets(t *testing.T) {
	a := newApp(t)
	rec := a.browser().get("/static/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
}
