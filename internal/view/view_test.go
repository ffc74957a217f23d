package view

import (
	"bytes"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-tracker/internal/model"
)

func render(t *testing.T, name string, p Page) string {
	t.Helper()
	r, err := New("http://localhost:8080")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, name, p, nil))
	return buf.String()
}

func TestPageHelpers(t *testing.T) {
	p := Page{
		Errors: map[string][]string{"email": {"first", "second"}},
		Old:    map[string]string{"name": "Ada"},
	}
	assert.Equal(t, "first", p.Err("email"))
	assert.Equal(t, "", p.Err("name"))
	assert.Equal(t, "Ada", p.Value("name", "fallback"))
	assert.Equal(t, "fallback", p.Value("email", "fallback"))
	assert.False(t, p.IsAdmin())

	p.User = &model.User{Role: model.RoleAdmin}
	assert.True(t, p.IsAdmin())
}

func TestRenderLoginWithErrors(t *testing.T) {
	out := render(t, "login", Page{
		Title:  "Log in",
		CSRF:   "tok123",
		Flash:  map[string]string{"error": "Nope"},
		Errors: map[string][]string{"email": {"The email field is required."}},
		Old:    map[string]string{"email": "ada@example.com"},
	})
	assert.Contains(t, out, "<title>Log in · Finance Tracker</title>")
	assert.Contains(t, out, `value="ada@example.com"`)
	assert.Contains(t, out, `value="tok123"`)
	assert.Contains(t, out, "The email field is required.")
	assert.Contains(t, out, `<div class="alert error">Nope</div>`)
	assert.NotContains(t, out, `href="/users"`)
}

func TestRenderNavigationForAdmins(t *testing.T) {
	u := &model.User{ID: 1, Name: "Root", Role: model.RoleAdmin, ProfileImage: "abc.png"}
	out := render(t, "error", Page{
		Title: "Forbidden",
		User:  u,
		Data:  struct {
			Status         int
			Title, Message string
		}{403, "Forbidden", "This action is unauthorized."},
	})
	assert.Contains(t, out, `href="/users"`)
	assert.Contains(t, out, "http://localhost:8080/storage/profiles/abc.png")
	assert.Contains(t, out, "403 · Forbidden")
	assert.Contains(t, out, "This action is unauthorized.")
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.Error(t, r.Render(&buf, "missing", Page{}, nil))
}

func TestStaticAssets(t *testing.T) {
	_, err := fs.Stat(Static(), "app.css")
	assert.NoError(t, err)
}
