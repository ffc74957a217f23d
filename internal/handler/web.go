package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/middleware"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/session"
	"github.com/iliyamo/finance-tracker/internal/view"
)

// csrfKey is where echo's CSRF middleware leaves the form token.
const csrfKey = "csrf"

// page builds the template data of the current request.
func page(c echo.Context, title string, data any) view.Page {
	p := view.Page{Title: title, User: middleware.CurrentUser(c), Data: data}
	p.CSRF, _ = c.Get(csrfKey).(string)
	if s := session.Lookup(c); s != nil {
		p.Flash, p.Errors, p.Old = s.Flashes(), s.Errors(), s.Old()
	}
	return p
}

func render(c echo.Context, name, title string, data any) error {
	return c.Render(http.StatusOK, name, page(c, title, data))
}

// redirect flashes msg and sends the browser to path.
func redirect(c echo.Context, path, kind, msg string) error {
	if msg != "" {
		session.Get(c).Flash(kind, msg)
	}
	return c.Redirect(http.StatusFound, path)
}

// fail turns expected failures of a web mutation into redirects: validation
// errors go back to the form with the submitted values, refusals go to
// fallback with an error flash. Anything else is returned unchanged.
func fail(c echo.Context, err error, form, fallback string) error {
	var (
		conf *Conflict
		den  *policy.Denial
	)
	if ve, ok := request.AsValidation(err); ok {
		session.Get(c).WithErrors(ve.Errors, oldInput(c))
		return c.Redirect(http.StatusFound, back(c, form))
	}
	switch {
	case errors.As(err, &den):
		return redirect(c, fallback, session.Error, den.Message)
	case errors.As(err, &conf):
		return redirect(c, fallback, session.Error, conf.Message)
	}
	return err
}

// back returns the same-site page the request came from, or fallback.
func back(c echo.Context, fallback string) string {
	ref, err := url.Parse(c.Request().Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != c.Request().Host) {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

// oldInput keeps the submitted form values, except secrets and the
// framework fields, for redisplay.
func oldInput(c echo.Context) map[string]string {
	form, err := c.FormParams()
	if err != nil {
		return nil
	}
	old := map[string]string{}
	for k, v := range form {
		if len(v) == 0 || strings.HasPrefix(k, "password") || k == "_csrf" || k == "_method" {
			continue
		}
		old[k] = v[0]
	}
	return old
}

// filters echoes the listing query back to the filter form.
func filters(c echo.Context, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = c.QueryParam(n)
	}
	return out
}
