package request

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/repository"
)

func validate(t *testing.T, v any) *ValidationError {
	t.Helper()
	err := NewValidator().Validate(v)
	if err == nil {
		return nil
	}
	ve, ok := AsValidation(err)
	require.True(t, ok, "unexpected error %v", err)
	return ve
}

func TestFieldDecodesJSONScalars(t *testing.T) {
	var body struct {
		A Field  `json:"a"`
		B Field  `json:"b"`
		C Field  `json:"c"`
		D *Field `json:"d"`
		E *Field `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"12.50","c":true,"e":null}`), &body))
	assert.Equal(t, Field("12.5"), body.A)
	assert.Equal(t, Field("12.50"), body.B)
	assert.Equal(t, Field("true"), body.C)
	assert.Nil(t, body.D)
	assert.Nil(t, body.E)

	assert.Error(t, json.Unmarshal([]byte(`{"a":{"x":1}}`), &body))
}

func TestFieldConversions(t *testing.T) {
	d, err := Field(" 12.50 ").Decimal()
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	id, err := Field("42").Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	day, err := Field("2024-01-10T15:30:00Z").Date()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10 00:00:00", day.Format("2006-01-02 15:04:05"))

	v, ok := Field("on").Bool()
	assert.True(t, ok)
	assert.True(t, v)
	_, ok = Field("maybe").Bool()
	assert.False(t, ok)
}

func TestStoreEntryRules(t *testing.T) {
	valid := StoreEntry{Amount: "0", Description: Field(strings.Repeat("x", 255)), Date: "2024-01-10", CategoryID: "3"}
	assert.Nil(t, validate(t, valid))

	negative := valid
	negative.Amount = "-0.01"
	ve := validate(t, negative)
	require.NotNil(t, ve)
	assert.Equal(t, []string{"The amount field must be at least 0."}, ve.Errors["amount"])

	long := valid
	long.Description = Field(strings.Repeat("x", 256))
	ve = validate(t, long)
	require.NotNil(t, ve)
	assert.Equal(t, []string{"The description field must not be greater than 255 characters."}, ve.Errors["description"])

	ve = validate(t, StoreEntry{Amount: "abc", Date: "10/01/2024", CategoryID: "x"})
	require.NotNil(t, ve)
	assert.Equal(t, []string{"amount", "description", "date", "category_id"}, ve.Fields)
	assert.Equal(t, "The amount field must be a number.", ve.Errors["amount"][0])
	assert.Equal(t, "The description field is required.", ve.Errors["description"][0])
	assert.Equal(t, "The date field must be a valid date.", ve.Errors["date"][0])
	assert.Equal(t, "The category id field must be an integer.", ve.Errors["category_id"][0])
	assert.Equal(t, "The amount field must be a number. (and 3 more errors)", ve.Message())
}

func TestUpdateEntrySometimes(t *testing.T) {
	assert.Nil(t, validate(t, UpdateEntry{}))
	assert.Nil(t, validate(t, UpdateEntry{Description: Ptr("Dinner")}))

	ve := validate(t, UpdateEntry{Description: Ptr("")})
	require.NotNil(t, ve)
	assert.Equal(t, "The description field is required.", ve.Message())
}

func TestBlankTextIsRequired(t *testing.T) {
	entry := StoreEntry{Amount: "1", Description: "   ", Date: "2024-01-10", CategoryID: "3"}
	ve := validate(t, entry)
	require.NotNil(t, ve)
	assert.Equal(t, "The description field is required.", ve.Message())

	ve = validate(t, UpdateEntry{Description: Ptr("\t ")})
	require.NotNil(t, ve)
	assert.Equal(t, "The description field is required.", ve.Message())

	ve = validate(t, StoreCategory{Name: "  "})
	require.NotNil(t, ve)
	assert.Equal(t, "The name field is required.", ve.Message())

	ve = validate(t, UpdateCategory{Name: Ptr(" ")})
	require.NotNil(t, ve)
	assert.Equal(t, []string{"name"}, ve.Fields)

	ve = validate(t, UpdateProfile{Name: Ptr("   ")})
	require.NotNil(t, ve)
	assert.Equal(t, []string{"name"}, ve.Fields)

	assert.Nil(t, validate(t, StoreCategory{Name: " Food "}))
}

func TestRegisterRules(t *testing.T) {
	ve := validate(t, Register{Name: "Alice", Email: "not-an-email", Password: "short", PasswordConfirmation: "short"})
	require.NotNil(t, ve)
	assert.Equal(t, "The email field must be a valid email address.", ve.Errors["email"][0])
	assert.Equal(t, "The password field must be at least 8 characters.", ve.Errors["password"][0])

	ve = validate(t, Register{Name: "Alice", Email: "alice@example.com", Password: "password123", PasswordConfirmation: "password124"})
	require.NotNil(t, ve)
	assert.Equal(t, "The password field confirmation does not match.", ve.Message())

	assert.Nil(t, validate(t, Register{Name: "Alice", Email: "alice@example.com", Password: "password123", PasswordConfirmation: "password123"}))
}

func TestUserRules(t *testing.T) {
	ve := validate(t, StoreUser{Name: "B", Email: "b@example.com", Password: "password123", PasswordConfirmation: "password123", Role: "root"})
	require.NotNil(t, ve)
	assert.Equal(t, "The selected role is invalid.", ve.Message())

	ve = validate(t, UpdateUser{IsActive: Ptr("perhaps")})
	require.NotNil(t, ve)
	assert.Equal(t, "The is active field must be true or false.", ve.Message())

	// an empty password on update means "keep the current one"
	assert.Nil(t, validate(t, UpdateUser{Password: Ptr(""), Role: Ptr("admin")}))
	assert.Nil(t, validate(t, UpdateProfile{Name: Ptr("Al")}))
}

func TestValidationErrorMessage(t *testing.T) {
	ve := NewValidationError("email", "The provided credentials are incorrect.")
	assert.Equal(t, "The provided credentials are incorrect.", ve.Error())
	ve.Add("email", "second")
	assert.Equal(t, "The provided credentials are incorrect. (and 1 more error)", ve.Message())
	assert.Equal(t, []string{"email"}, ve.Fields)
}

func TestBindJSONAndForm(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":12.5,"description":"Lunch","date":"2024-01-10","category_id":1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	var in StoreEntry
	require.NoError(t, Bind(c, &in))
	assert.Equal(t, Field("12.5"), in.Amount)
	assert.Equal(t, Field("1"), in.CategoryID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("amount=3&description=Bus&date=2024-02-01&category_id=2&_csrf=x"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c = e.NewContext(req, httptest.NewRecorder())
	in = StoreEntry{}
	require.NoError(t, Bind(c, &in))
	assert.Equal(t, Field("Bus"), in.Description)
	assert.Nil(t, in.UserID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"description":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	var upd UpdateEntry
	err := Bind(c, &upd)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Errors, "description")
}

func TestParseList(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?search=+lunch+&sort=amount&direction=asc&page=2&per_page=500&include=category,password&include_counts&category_id=4&date_start=2024-01-01&amount_max=20.5&status=inactive&role=Admin&user_id=x", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	p := ParseList(c, APIPerPage, repository.EntryIncludes)
	assert.Equal(t, "lunch", p.Search)
	assert.Equal(t, "amount", p.Sort)
	assert.Equal(t, "asc", p.Direction)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 100, p.PerPage)
	assert.Equal(t, []string{"category"}, p.Includes)
	assert.True(t, p.IncludeCounts)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, uint64(4), *p.CategoryID)
	require.NotNil(t, p.DateStart)
	assert.Nil(t, p.DateEnd)
	require.NotNil(t, p.AmountMax)
	assert.Equal(t, "20.5", p.AmountMax.String())
	require.NotNil(t, p.Active)
	assert.False(t, *p.Active)
	require.NotNil(t, p.Role)
	assert.Equal(t, model.RoleAdmin, *p.Role)
	assert.Nil(t, p.UserID)

	req = httptest.NewRequest(http.MethodGet, "/?user_id=7", nil)
	p = ParseList(e.NewContext(req, httptest.NewRecorder()), WebPerPage, nil)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, WebPerPage, p.PerPage)
	assert.False(t, p.IncludeCounts)

	user := policy.ActingUser{ID: 3, Role: model.RoleUser}
	admin := policy.ActingUser{ID: 1, Role: model.RoleAdmin}
	assert.Equal(t, uint64(3), *p.Owner(user))
	assert.Equal(t, uint64(7), *p.Owner(admin))
}
