// Package resource shapes records into their JSON representation. Scalar
// fields are always present; relations appear only when they were asked for
// with include=, and relation counts only with include_counts.
package resource

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
)

const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// Options selects the optional parts of a payload.
type Options struct {
	Includes []string
	// Counts is nil unless include_counts was set.
	Counts map[uint64]repository.RelationCounts
}

func (o Options) has(name string) bool { return slices.Contains(o.Includes, name) }

// Serializer turns records into payloads. BaseURL prefixes file links.
type Serializer struct {
	BaseURL string
}

type User struct {
	ID              uint64       `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	ProfileImageURL string       `json:"profile_image_url"`
	IsActive        bool         `json:"is_active"`
	Role            model.Role   `json:"role"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
	Roles           []model.Role `json:"roles,omitempty"`
	ExpensesCount   *int64       `json:"expenses_count,omitempty"`
	IncomesCount    *int64       `json:"incomes_count,omitempty"`
	Expenses        *[]Entry     `json:"expenses,omitempty"`
	Incomes         *[]Entry     `json:"incomes,omitempty"`
}

type Category struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	UserID        uint64   `json:"user_id"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	ExpensesCount *int64   `json:"expenses_count,omitempty"`
	IncomesCount  *int64   `json:"incomes_count,omitempty"`
	User          *User    `json:"user,omitempty"`
	Expenses      *[]Entry `json:"expenses,omitempty"`
	Incomes       *[]Entry `json:"incomes,omitempty"`
}

// Entry is the payload of an expense or an income.
type Entry struct {
	ID              uint64    `json:"id"`
	Amount          string    `json:"amount"`
	FormattedAmount string    `json:"formatted_amount"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	CategoryID      uint64    `json:"category_id"`
	UserID          uint64    `json:"user_id"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
	Category        *Category `json:"category,omitempty"`
	User            *User     `json:"user,omitempty"`
}

func (s Serializer) User(u *model.User, o Options) User {
	out := User{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		ProfileImageURL: s.ProfileImageURL(u),
		IsActive:        u.IsActive,
		Role:            u.Role,
		CreatedAt:       Timestamp(u.CreatedAt),
		UpdatedAt:       Timestamp(u.UpdatedAt),
	}
	if o.has("roles") {
		out.Roles = []model.Role{u.Role}
	}
	if o.Counts != nil {
		n := o.Counts[u.ID]
		out.ExpensesCount, out.IncomesCount = &n.Expenses, &n.Incomes
	}
	if o.has("expenses") {
		out.Expenses = entries(s, u.Expenses)
	}
	if o.has("incomes") {
		out.Incomes = entries(s, u.Incomes)
	}
	return out
}

func (s Serializer) Users(items []model.User, o Options) []User {
	out := make([]User, 0, len(items))
	for i := range items {
		out = append(out, s.User(&items[i], o))
	}
	return out
}

// ProfileImageURL links the uploaded picture or the bundled default avatar.
func (s Serializer) ProfileImageURL(u *model.User) string {
	base := strings.TrimRight(s.BaseURL, "/")
	if u.ProfileImage == "" {
		return base + "/static/default-avatar.svg"
	}
	return base + "/storage/profiles/" + u.ProfileImage
}

func (s Serializer) Category(c *model.Category, o Options) Category {
	out := Category{
		ID:        c.ID,
		Name:      c.Name,
		UserID:    c.UserID,
		CreatedAt: Timestamp(c.CreatedAt),
		UpdatedAt: Timestamp(c.UpdatedAt),
	}
	if o.Counts != nil {
		n := o.Counts[c.ID]
		out.ExpensesCount, out.IncomesCount = &n.Expenses, &n.Incomes
	}
	if o.has("user") && c.User != nil {
		u := s.User(c.User, Options{})
		out.User = &u
	}
	if o.has("expenses") {
		out.Expenses = entries(s, c.Expenses)
	}
	if o.has("incomes") {
		out.Incomes = entries(s, c.Incomes)
	}
	return out
}

func (s Serializer) Categories(items []model.Category, o Options) []Category {
	out := make([]Category, 0, len(items))
	for i := range items {
		out = append(out, s.Category(&items[i], o))
	}
	return out
}

// Serialize shapes one ledger record. Loaded relations are always shown.
func Serialize[T model.Entry](s Serializer, rec T) Entry {
	v := rec.View()
	out := Entry{
		ID:              v.ID,
		Amount:          v.Amount.StringFixed(2),
		FormattedAmount: FormatAmount(v.Amount, rec.Kind()),
		Description:     v.Description,
		Date:            v.Date.Format(DateLayout),
		CategoryID:      v.CategoryID,
		UserID:          v.UserID,
		CreatedAt:       Timestamp(v.CreatedAt),
		UpdatedAt:       Timestamp(v.UpdatedAt),
	}
	if v.Category != nil {
		c := s.Category(v.Category, Options{})
		out.Category = &c
	}
	if v.User != nil {
		u := s.User(v.User, Options{})
		out.User = &u
	}
	return out
}

func SerializeAll[T model.Entry](s Serializer, items []T) []Entry {
	out := make([]Entry, 0, len(items))
	for _, rec := range items {
		out = append(out, Serialize(s, rec))
	}
	return out
}

func entries[T model.Entry](s Serializer, items []T) *[]Entry {
	out := SerializeAll(s, items)
	return &out
}

// Timestamp formats t in UTC.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// FormatAmount renders an amount with two decimals, comma thousands
// separators and the currency of its kind, e.g. "1,234.50 FRCFA".
func FormatAmount(d decimal.Decimal, k model.Kind) string {
	return GroupThousands(d.StringFixed(2)) + k.Currency
}

// GroupThousands inserts commas into the integer part of a decimal string.
func GroupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}
