package router

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
)

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.api(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRegisterLoginCreateAndList(t *testing.T) {
	a := newApp(t)
	a.register("Alice", "alice@example.com")
	bobToken, _ := a.register("Bob", "bob@example.com")

	rec := a.api(http.MethodPost, "/v1/login", "", map[string]any{"email": "alice@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID    uint64 `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &login)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "alice@example.com", login.User.Email)

	groceries := a.category(login.Token, "Groceries")
	rec = a.api(http.MethodPost, "/v1/expenses", login.Token, map[string]any{
		"amount": 12.50, "description": "Lunch", "date": "2024-01-10", "category_id": groceries,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := body(t, rec)["data"].(map[string]any)
	assert.Equal(t, "12.50", created["amount"])
	assert.Equal(t, "12.50 FRCFA", created["formatted_amount"])
	assert.Equal(t, "2024-01-10", created["date"])

	// bob's rows must not show up in alice's listing
	a.entry(bobToken, "expenses", "3.00", a.category(bobToken, "Rent"))

	rec = a.api(http.MethodGet, "/v1/expenses", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []struct {
			ID          uint64 `json:"id"`
			UserID      uint64 `json:"user_id"`
			Description string `json:"description"`
		} `json:"data"`
		Meta struct {
			Total int64  `json:"total"`
			Path  string `json:"path"`
		} `json:"meta"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, login.User.ID, list.Data[0].UserID)
	assert.Equal(t, "Lunch", list.Data[0].Description)
	assert.EqualValues(t, 1, list.Meta.Total)
	assert.Equal(t, "http://localhost:8080/v1/expenses", list.Meta.Path)
}

func TestDeactivatedUserCannotLogIn(t *testing.T) {
	a := newApp(t)
	adminToken, _ := a.admin("Root", "root@example.com")
	aliceToken, aliceID := a.register("Alice", "alice@example.com")

	rec := a.api(http.MethodPatch, pathf("/v1/users/%d/toggle-active", aliceID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, body(t, rec)["data"].(map[string]any)["is_active"])

	rec = a.api(http.MethodPost, "/v1/login", "", map[string]any{"email": "alice@example.com", "password": testPassword})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	out := body(t, rec)
	assert.Equal(t, middleware.DeactivatedMessage, out["message"])
	assert.NotContains(t, out, "token")

	// tokens issued before the block stop working too
	rec = a.api(http.MethodGet, "/v1/user", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCannotBlockThemselves(t *testing.T) {
	a := newApp(t)
	adminToken, adminID := a.admin("Root", "root@example.com")
	rec := a.api(http.MethodPatch, pathf("/v1/users/%d/toggle-active", adminID), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You cannot block your own account", body(t, rec)["message"])

	// an account edit cannot deactivate the caller either
	rec = a.api(http.MethodPut, pathf("/v1/users/%d", adminID), adminToken, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You cannot block your own account", body(t, rec)["message"])

	rec = a.api(http.MethodGet, "/v1/user", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Data struct {
			IsActive bool `json:"is_active"`
		} `json:"data"`
	}
	decode(t, rec, &me)
	assert.True(t, me.Data.IsActive)

	// staying active and blocking others are still allowed
	rec = a.api(http.MethodPut, pathf("/v1/users/%d", adminID), adminToken, map[string]any{"is_active": true, "name": "Root Admin"})
	assert.Equal(t, http.StatusOK, rec.Code)
	_, aliceID := a.register("Alice", "alice@example.com")
	rec = a.api(http.MethodPut, pathf("/v1/users/%d", aliceID), adminToken, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCannotDeleteSomeoneElsesCategory(t *testing.T) {
	a := newApp(t)
	aliceToken, _ := a.register("Alice", "alice@example.com")
	bobToken, _ := a.register("Bob", "bob@example.com")
	bobs := a.category(bobToken, "Rent")

	rec := a.api(http.MethodDelete, pathf("/v1/categories/%d", bobs), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "This action is unauthorized.", body(t, rec)["message"])

	rec = a.api(http.MethodGet, pathf("/v1/categories/%d", bobs), bobToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCannotTouchOthersRecords(t *testing.T) {
	a := newApp(t)
	aliceToken, _ := a.register("Alice", "alice@example.com")
	adminToken, _ := a.admin("Root", "root@example.com")
	cat := a.category(aliceToken, "Groceries")
	exp := a.entry(aliceToken, "expenses", "12.50", cat)

	rec := a.api(http.MethodDelete, pathf("/v1/expenses/%d", exp), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.api(http.MethodPut, pathf("/v1/categories/%d", cat), adminToken, map[string]any{"name": "Food"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.api(http.MethodGet, pathf("/v1/expenses/%d", exp), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.api(http.MethodGet, pathf("/v1/expenses/%d", exp), aliceToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardTotals(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	cat := a.category(token, "Groceries")
	a.entry(token, "expenses", "30.00", cat)
	a.entry(token, "expenses", 30, cat)
	a.entry(token, "expenses", "40", cat)
	a.entry(token, "incomes", "500.00", cat)

	rec := a.api(http.MethodGet, "/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Data map[string]any `json:"data"`
	}
	decode(t, rec, &out)
	assert.Equal(t, "100.00", out.Data["total_expenses"])
	assert.Equal(t, "500.00", out.Data["total_incomes"])
	assert.Equal(t, "400.00", out.Data["balance"])
	assert.EqualValues(t, 3, out.Data["expense_count"])
	assert.EqualValues(t, 1, out.Data["income_count"])
	assert.NotContains(t, out.Data, "user_count")
	assert.Len(t, out.Data["latest_expenses"], 3)
}

func TestEntryRejectsForeignCategory(t *testing.T) {
	a := newApp(t)
	aliceToken, _ := a.register("Alice", "alice@example.com")
	bobToken, _ := a.register("Bob", "bob@example.com")
	bobs := a.category(bobToken, "Rent")

	rec := a.api(http.MethodPost, "/v1/expenses", aliceToken, map[string]any{
		"amount": "10", "description": "Sneaky", "date": "2024-01-10", "category_id": bobs,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "The category does not belong to you", body(t, rec)["message"])

	rec = a.api(http.MethodPost, "/v1/expenses", aliceToken, map[string]any{
		"amount": "10", "description": "Ghost", "date": "2024-01-10", "category_id": 999,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := body(t, rec)["errors"].(map[string]any)
	assert.Equal(t, []any{"The selected category id is invalid."}, errs["category_id"])

	// admins may file rows under any category
	adminToken, _ := a.admin("Root", "root@example.com")
	a.entry(adminToken, "expenses", "1", bobs)
}

func TestCategoryInUseCannotBeDeleted(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	cat := a.category(token, "Groceries")
	exp := a.entry(token, "expenses", "5", cat)

	rec := a.api(http.MethodDelete, pathf("/v1/categories/%d", cat), token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Cannot delete a category that is in use", body(t, rec)["message"])

	rec = a.api(http.MethodDelete, pathf("/v1/expenses/%d", exp), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.api(http.MethodDelete, pathf("/v1/categories/%d", cat), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := a.deps.Categories.Find(context.Background(), cat, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestValidationErrorShape(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")

	rec := a.api(http.MethodPost, "/v1/expenses", token, map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := body(t, rec)
	assert.Equal(t, "The amount field is required. (and 3 more errors)", out["message"])
	errs := out["errors"].(map[string]any)
	for _, field := range []string{"amount", "description", "date", "category_id"} {
		assert.Contains(t, errs, field)
	}

	rec = a.api(http.MethodPost, "/v1/register", "", map[string]any{
		"name": "Other", "email": "alice@example.com", "password": testPassword, "password_confirmation": testPassword,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The email has already been taken.", body(t, rec)["message"])
}

func TestBlankTextIsRejected(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	cat := a.category(token, "Groceries")

	rec := a.api(http.MethodPost, "/v1/categories", token, map[string]any{"name": "   "})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The name field is required.", body(t, rec)["message"])

	rec = a.api(http.MethodPost, "/v1/expenses", token, map[string]any{
		"amount": "5", "description": "   ", "date": "2024-01-10", "category_id": cat,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The description field is required.", body(t, rec)["message"])

	exp := a.entry(token, "expenses", "5", cat)
	rec = a.api(http.MethodPatch, pathf("/v1/expenses/%d", exp), token, map[string]any{"description": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = a.api(http.MethodPut, pathf("/v1/categories/%d", cat), token, map[string]any{"name": "\t"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	n, err := a.deps.Categories.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBadCredentials(t *testing.T) {
	a := newApp(t)
	a.register("Alice", "alice@example.com")

	for _, creds := range []map[string]any{
		{"email": "alice@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": testPassword},
	} {
		rec := a.api(http.MethodPost, "/v1/login", "", creds)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "The provided credentials are incorrect.", body(t, rec)["message"])
	}
}

func TestAuthenticationRequired(t *testing.T) {
	a := newApp(t)
	for _, p := range []string{"/v1/user", "/v1/expenses", "/v1/dashboard"} {
		rec := a.api(http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
		assert.Equal(t, "Unauthenticated.", body(t, rec)["message"])
	}
	rec := a.api(http.MethodGet, "/v1/user", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")

	rec := a.api(http.MethodPost, "/v1/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out", body(t, rec)["message"])

	rec = a.api(http.MethodGet, "/v1/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersAreAdminOnly(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	rec := a.api(http.MethodGet, "/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, _ := a.admin("Root", "root@example.com")
	rec = a.api(http.MethodGet, "/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	decode(t, rec, &list)
	assert.EqualValues(t, 2, list.Meta.Total)
}

func TestUnknownRecordIsNotFound(t *testing.T) {
	a := newApp(t)
	token, _ := a.register("Alice", "alice@example.com")
	for _, p := range []string{"/v1/expenses/999", "/v1/categories/abc", "/v1/nowhere"} {
		rec := a.api(http.MethodGet, p, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
		assert.Equal(t, "Not Found.", body(t, rec)["message"], p)
	}
}

func TestProfileDeleteNeedsPassword(t *testing.T) {
	a := newApp(t)
	token, id := a.register("Alice", "alice@example.com")

	rec := a.api(http.MethodDelete, "/v1/profile", token, map[string]any{"password": "wrong-password"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The password is incorrect.", body(t, rec)["message"])

	rec = a.api(http.MethodDelete, "/v1/profile", token, map[string]any{"password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account successfully deleted", body(t, rec)["message"])

	_, err := a.deps.Users.Find(context.Background(), id, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMutationsPublishEvents(t *testing.T) {
	a := newApp(t)
	token, id := a.register("Alice", "alice@example.com")
	cat := a.category(token, "Groceries")

	var found bool
	for _, ev := range a.events.Events() {
		if ev.Resource == "category" && ev.Action == queue.ActionCreated {
			found = true
			assert.Equal(t, cat, ev.ResourceID)
			assert.Equal(t, id, ev.UserID)
			assert.Equal(t, id, ev.ActorID)
		}
	}
	assert.True(t, found)
}
