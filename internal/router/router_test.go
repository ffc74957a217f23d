package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/iliyamo/finance-tracker/internal/config"
	"github.com/iliyamo/finance-tracker/internal/database"
	"github.com/iliyamo/finance-tracker/internal/handler"
	"github.com/iliyamo/finance-tracker/internal/logging"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/service"
	"github.com/iliyamo/finance-tracker/internal/session"
	"github.com/iliyamo/finance-tracker/internal/storage"
	"github.com/iliyamo/finance-tracker/internal/view"
)

const testPassword = "password123"

// app is the whole application wired against an in-memory database.
type app struct {
	t      *testing.T
	e      *echo.Echo
	db     *gorm.DB
	deps   handler.Deps
	events *service.RecordingPublisher
}

func newApp(t *testing.T) *app {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Config{
		Env:           "test",
		AppURL:        "http://localhost:8080",
		DBDriver:      "sqlite",
		JWTSecret:     "test-secret-0123456789",
		TokenTTLMin:   60,
		BcryptCost:    bcrypt.MinCost,
		SessionTTLMin: 60,
		UploadDir:     t.TempDir(),
	}
	log := logging.Discard()
	renderer, err := view.New(cfg.AppURL)
	require.NoError(t, err)

	events := &service.RecordingPublisher{}
	deps := handler.Deps{
		Cfg:        cfg,
		Log:        log,
		Users:      repository.NewUserRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Categories: repository.NewCategoryRepo(db),
		Expenses:   repository.NewEntryRepo[model.Expense](db),
		Incomes:    repository.NewEntryRepo[model.Income](db),
		Sessions:   session.NewManager(repository.NewSessionRepo(db), time.Hour, false, log),
		Images:     storage.NewImageStore(cfg.UploadDir),
		Dashboard:  service.NewDashboard(db),
		Publisher:  events,
	}
	e := New(Options{Deps: deps, DB: db, Renderer: renderer})
	return &app{t: t, e: e, db: db, deps: deps, events: events}
}

// api sends a JSON request, authenticated when token is not empty.
func (a *app) api(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token and id.
func (a *app) register(name, email string) (string, uint64) {
	a.t.Helper()
	rec := a.api(http.MethodPost, "/v1/register", "", map[string]any{
		"name": name, "email": email, "password": testPassword, "password_confirmation": testPassword,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint64 `json:"id"`
		} `json:"user"`
	}
	decode(a.t, rec, &out)
	return out.Token, out.User.ID
}

// admin registers an account and promotes it.
func (a *app) admin(name, email string) (string, uint64) {
	a.t.Helper()
	token, id := a.register(name, email)
	u, err := a.deps.Users.Find(context.Background(), id, nil)
	require.NoError(a.t, err)
	require.NoError(a.t, a.deps.Users.Update(context.Background(), u, model.Attributes{"role": model.RoleAdmin}))
	return token, id
}

func (a *app) category(token, name string) uint64 {
	a.t.Helper()
	rec := a.api(http.MethodPost, "/v1/categories", token, map[string]any{"name": name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataID(a.t, rec)
}

func (a *app) entry(token, kind string, amount any, categoryID uint64) uint64 {
	a.t.Helper()
	rec := a.api(http.MethodPost, "/v1/"+kind, token, map[string]any{
		"amount": amount, "description": "Lunch", "date": "2024-01-10", "category_id": categoryID,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataID(a.t, rec)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	decode(t, rec, &out)
	return out
}

func dataID(t *testing.T, rec *httptest.ResponseRecorder) uint64 {
	t.Helper()
	var out struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
	}
	decode(t, rec, &out)
	require.NotZero(t, out.Data.ID)
	return out.Data.ID
}

// browser keeps cookies between web requests.
type browser struct {
	app     *app
	cookies map[string]*http.Cookie
}

func (a *app) browser() *browser {
	return &browser{app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits a form. A "_method" value is sent like an HTML form would.
func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.do(req)
}

func (b *browser) login(email string) {
	rec := b.post("/login", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(b.app.t, http.StatusFound, rec.Code)
	require.Equal(b.app.t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func pathf(format string, args ...any) string { return fmt.Sprintf(format, args...) }
