// Package view renders the server-side HTML pages. Every page is parsed
// together with templates/base.html, which lays out the navigation, the
// flash messages and the page content.
package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/resource"
)

// Page is the data every template receives.
type Page struct {
	Title  string
	User   *model.User
	CSRF   string
	Flash  map[string]string
	Errors map[string][]string
	Old    map[string]string
	Data   any
}

// Err returns the first validation message for field.
func (p Page) Err(field string) string {
	if msgs := p.Errors[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Value returns the previously submitted value of field, or fallback when
// the form is shown for the first time.
func (p Page) Value(field, fallback string) string {
	if v, ok := p.Old[field]; ok {
		return v
	}
	return fallback
}

// IsAdmin reports whether the viewer is an administrator.
func (p Page) IsAdmin() bool { return p.User != nil && p.User.IsAdmin() }

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page. baseURL prefixes profile picture links.
func New(baseURL string) (*Renderer, error) {
	ser := resource.Serializer{BaseURL: baseURL}
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal, k model.Kind) string { return resource.FormatAmount(d, k) },
		"fixed": func(d decimal.Decimal) string { return resource.GroupThousands(d.StringFixed(2)) },
		"date":  func(t time.Time) string { return t.Format(resource.DateLayout) },
		"stamp": resource.Timestamp,
		"avatar": func(v any) string {
			switch u := v.(type) {
			case *model.User:
				if u != nil {
					return ser.ProfileImageURL(u)
				}
			case model.User:
				return ser.ProfileImageURL(&u)
			}
			return ser.ProfileImageURL(&model.User{})
		},
		"roles": func() []model.Role { return model.Roles },
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}

	names, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range names {
		page := strings.TrimSuffix(path.Base(name), ".html")
		if page == "base" {
			continue
		}
		t, err := template.New(page).Funcs(funcs).ParseFS(templatesFS, "templates/base.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render writes the named page. data is normally a Page.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}

// Static returns the embedded assets served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
