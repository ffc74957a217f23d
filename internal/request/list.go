package request

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/repository"
)

const (
	APIPerPage = 15
	WebPerPage = 10
	maxPerPage = 100
)

// ListParams holds the query string of a listing. Values that do not parse
// are ignored rather than rejected.
type ListParams struct {
	repository.ListOptions
	IncludeCounts bool
	UserID        *uint64
	CategoryID    *uint64
	DateStart     *time.Time
	DateEnd       *time.Time
	AmountMin     *decimal.Decimal
	AmountMax     *decimal.Decimal
	Active        *bool
	Role          *model.Role
}

// ParseList reads the listing parameters of c. Only includes named in
// allowed survive.
func ParseList(c echo.Context, perPage int, allowed []string) ListParams {
	q := c.QueryParams()
	p := ListParams{
		ListOptions: repository.ListOptions{
			Search:    strings.TrimSpace(q.Get("search")),
			Sort:      strings.TrimSpace(q.Get("sort")),
			Direction: strings.TrimSpace(q.Get("direction")),
			Page:      atoi(q.Get("page"), 1),
			PerPage:   atoi(q.Get("per_page"), perPage),
		},
		UserID:     uintParam(q.Get("user_id")),
		CategoryID: uintParam(q.Get("category_id")),
		DateStart:  dateParam(q.Get("date_start")),
		DateEnd:    dateParam(q.Get("date_end")),
		AmountMin:  decimalParam(q.Get("amount_min")),
		AmountMax:  decimalParam(q.Get("amount_max")),
	}
	_, p.IncludeCounts = q["include_counts"]

	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = perPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	if inc := q.Get("include"); inc != "" {
		p.Includes = repository.FilterIncludes(strings.Split(inc, ","), allowed)
	}
	if _, ok := q["status"]; ok {
		active := q.Get("status") == "active"
		p.Active = &active
	}
	if r := strings.TrimSpace(q.Get("role")); r != "" {
		role := model.Role(strings.ToLower(r))
		p.Role = &role
	}
	return p
}

// Owner resolves the owner filter of a listing: non-admins always see
// their own rows, admins see everything unless they pass user_id.
func (p ListParams) Owner(a policy.ActingUser) *uint64 {
	if !a.IsAdmin() {
		return a.Scope()
	}
	return p.UserID
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func uintParam(s string) *uint64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func dateParam(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func decimalParam(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}
