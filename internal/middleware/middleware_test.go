package middleware

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/gorm"

    "github.com/iliyamo/finance-tracker/internal/config"
    "github.com/iliyamo/finance-tracker/internal/database"
    "github.com/iliyamo/finance-tracker/internal/logging"
    "github.com/iliyamo/finance-tracker/internal/model"
    "github.com/iliyamo/finance-tracker/internal/policy"
    "github.com/iliyamo/finance-tracker/internal/repository"
    "github.com/iliyamo/finance-tracker/internal/utils"
)

const secret = "0123456789abcdef0123"

type authFixture struct {
    db     *gorm.DB
    users  *repository.UserRepo
    tokens *repository.TokenRepo
    e      *echo.Echo
}

func newAuthFixture(t *testing.T) *authFixture {
    db, err := database.OpenSQLite(":memory:", nil)
    require.NoError(t, err)
    require.NoError(t, database.Migrate(db))
    f := &authFixture{db: db, users: repository.NewUserRepo(db), tokens: repository.NewTokenRepo(db), e: echo.New()}

    g := f.e.Group("/v1", TokenAuth(secret, f.tokens, f.users, logging.Discard()))
    g.GET("/whoami", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"id": Actor(c).ID, "token": CurrentToken(c).Name})
    })
    g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(model.RoleAdmin))
    return f
}

func (f *authFixture) issue(t *testing.T, u *model.User) string {
    tok, err := utils.NewAccessToken(secret, u.ID, string(u.Role), 5)
    require.NoError(t, err)
    _, err = f.tokens.Create(context.Background(), u.ID, "phone", tok.Hash, tok.Exp)
    require.NoError(t, err)
    return tok.Token
}

func (f *authFixture) get(path, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodGet, path, nil)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    f.e.ServeHTTP(rec, req)
    return rec
}

func (f *authFixture) user(t *testing.T, email string, role model.Role) *model.User {
    u, err := f.users.Create(context.Background(), model.Attributes{"name": email, "email": email, "password": "hash", "role": role})
    require.NoError(t, err)
    return u
}

func TestTokenAuthAcceptsIssuedToken(t *testing.T) {
    f := newAuthFixture(t)
    alice := f.user(t, "alice@example.com", model.RoleUser)
    raw := f.issue(t, alice)

    rec := f.get("/v1/whoami", raw)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":1,"token":"phone"}`, rec.Body.String())

    row, err := f.tokens.FindByHash(context.Background(), utils.HashToken(raw))
    require.NoError(t, err)
    assert.NotNil(t, row.LastUsedAt)
}

func TestTokenAuthRejects(t *testing.T) {
    f := newAuthFixture(t)
    alice := f.user(t, "alice@example.com", model.RoleUser)
    bob := f.user(t, "bob@example.com", model.RoleUser)

    assert.Equal(t, http.StatusUnauthorized, f.get("/v1/whoami", "").Code)
    assert.Equal(t, http.StatusUnauthorized, f.get("/v1/whoami", "garbage").Code)

    // signed but never stored, e.g. revoked by logout
    unsaved, err := utils.NewAccessToken(secret, alice.ID, "user", 5)
    require.NoError(t, err)
    rec := f.get("/v1/whoami", unsaved.Token)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"message":"Unauthenticated."}`, rec.Body.String())

    // stored for a different account than the one it names
    forged, err := utils.NewAccessToken(secret, bob.ID, "user", 5)
    require.NoError(t, err)
    _, err = f.tokens.Create(context.Background(), alice.ID, "x", forged.Hash, forged.Exp)
    require.NoError(t, err)
    assert.Equal(t, http.StatusUnauthorized, f.get("/v1/whoami", forged.Token).Code)

    raw := f.issue(t, alice)
    require.NoError(t, f.users.Update(context.Background(), alice, model.Attributes{"is_active": false}))
    rec = f.get("/v1/whoami", raw)
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.JSONEq(t, `{"message":"`+DeactivatedMessage+`"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
    f := newAuthFixture(t)
    var denial *policy.Denial
    f.e.HTTPErrorHandler = func(err error, c echo.Context) {
        if errors.As(err, &denial) {
            _ = c.JSON(http.StatusForbidden, echo.Map{"message": denial.Message})
            return
        }
        f.e.DefaultHTTPErrorHandler(err, c)
    }
    alice := f.user(t, "alice@example.com", model.RoleUser)
    root := f.user(t, "root@example.com", model.RoleAdmin)

    assert.Equal(t, http.StatusForbidden, f.get("/v1/admin", f.issue(t, alice)).Code)
    assert.Equal(t, http.StatusNoContent, f.get("/v1/admin", f.issue(t, root)).Code)
}

func TestCacheKeysAreScopedToUserAndGeneration(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
    e := echo.New()
    ctx := func(uid uint64, target string) echo.Context {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/v1/expenses")
        if uid != 0 {
            SetUser(c, &model.User{ID: uid})
        }
        return c
    }

    a := cacheKeyFrom(cfg, ctx(1, "/v1/expenses?page=2"), 0)
    assert.Equal(t, a, cacheKeyFrom(cfg, ctx(1, "/v1/expenses?page=2"), 0))
    assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx(2, "/v1/expenses?page=2"), 0))
    assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx(1, "/v1/expenses?page=2"), 1))
    assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx(1, "/v1/expenses?page=3"), 0))
    assert.NotEqual(t, a, cacheKeyFrom(cfg, ctx(0, "/v1/expenses?page=2"), 0))
    assert.Regexp(t, `^cache:[0-9a-f]{64}$`, a)
}

func TestPayloadCodec(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"data":[]}`))
    require.NoError(t, err)

    status, gotHdr, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
    assert.Equal(t, `{"data":[]}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 0})
    assert.False(t, ok)
}

func TestDisabledRedisFeaturesPassThrough(t *testing.T) {
    e := echo.New()
    log := logging.Discard()
    e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, log))
    e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil, log))
    e.Use(InvalidateOnWrite(config.CacheConfig{Enabled: true}, nil, log))
    e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRequestLoggerLevels(t *testing.T) {
    var buf bytes.Buffer
    log := logging.New("production", "info", &buf)
    e := echo.New()
    e.Use(RequestLogger(log))
    e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
    e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

    for _, path := range []string{"/ok", "/missing", "/boom"} {
        e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
    }

    var levels []string
    dec := json.NewDecoder(&buf)
    for dec.More() {
        var entry map[string]any
        require.NoError(t, dec.Decode(&entry))
        levels = append(levels, entry["level"].(string))
        assert.Equal(t, "guest", entry[logging.FieldUserID])
    }
    assert.Equal(t, []string{"info", "warning", "error"}, levels)
}

func TestIdentityHelpersForGuests(t *testing.T) {
    c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    assert.Nil(t, CurrentUser(c))
    assert.Nil(t, CurrentToken(c))
    assert.Equal(t, policy.ActingUser{}, Actor(c))
    assert.Equal(t, "guest", userID(c))

    SetUser(c, &model.User{ID: 3, Role: model.RoleAdmin, CreatedAt: time.Now()})
    assert.True(t, Actor(c).IsAdmin())
    assert.Equal(t, "3", userID(c))
}

func TestRateKeyStrategies(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/expenses", nil)
    req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/expenses")

    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}
    assert.Equal(t, "rl:ip:10.0.0.1:user:guest", rateKey(cfg, c))

    SetUser(c, &model.User{ID: 7})
    cfg.KeyStrategy = "USER_ROUTE"
    assert.Equal(t, "rl:user:7:route:GET /v1/expenses", rateKey(cfg, c))

    cfg.KeyStrategy = "anything"
    assert.Equal(t, "rl:ip:10.0.0.1:user:7:route:GET /v1/expenses", rateKey(cfg, c))
}
