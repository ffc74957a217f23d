package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// Relations that callers may ask to have eager-loaded, per resource.
var (
	EntryIncludes    = []string{"user", "category"}
	CategoryIncludes = []string{"user", "expenses", "incomes"}
	UserIncludes     = []string{"roles", "expenses", "incomes"}
)

// preloads maps include names onto GORM association names. "roles" has no
// association: the role is a column and is always loaded.
var preloads = map[string]string{
	"user":     "User",
	"category": "Category",
	"expenses": "Expenses",
	"incomes":  "Incomes",
}

// FilterIncludes keeps the requested names that appear in allowed, in the
// order of allowed and without duplicates.
func FilterIncludes(requested, allowed []string) []string {
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[strings.ToLower(strings.TrimSpace(r))] = true
	}
	out := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if want[a] {
			out = append(out, a)
		}
	}
	return out
}

// withIncludes returns a scope that preloads the given relations.
func withIncludes(includes []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, inc := range includes {
			if assoc, ok := preloads[inc]; ok {
				db = db.Preload(assoc)
			}
		}
		return db
	}
}

// ListOptions carries the parameters common to every listing.
type ListOptions struct {
	Search    string
	Sort      string
	Direction string // "asc" sorts ascending, anything else descending; empty uses the default
	Page      int
	PerPage   int
	Includes  []string
}

// Page is one slice of a listing plus what is needed to build links.
type Page[T any] struct {
	Items   []T
	Total   int64
	Page    int
	PerPage int
}

// LastPage is the number of the final page, never less than 1.
func (p Page[T]) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// sortSpec is the allow-list of sortable columns of one resource.
type sortSpec struct {
	allowed   []string
	column    string
	direction string
}

var (
	entrySort    = sortSpec{allowed: []string{"id", "date", "amount", "created_at"}, column: "date", direction: "desc"}
	categorySort = sortSpec{allowed: []string{"id", "name", "created_at"}, column: "name", direction: "asc"}
	userSort     = sortSpec{allowed: []string{"id", "name", "email", "created_at", "updated_at"}, column: "created_at", direction: "desc"}
)

// order returns a scope applying the requested sort, falling back to the
// resource default for unknown columns. id breaks ties so pages are stable.
func (s sortSpec) order(opts ListOptions) func(*gorm.DB) *gorm.DB {
	column := s.column
	for _, a := range s.allowed {
		if a == opts.Sort {
			column = a
			break
		}
	}
	dir := strings.ToLower(opts.Direction)
	if dir == "" {
		dir = s.direction
	}
	desc := dir != "asc"
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
		if column != "id" {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
		}
		return db
	}
}

// paginate counts the rows matched by filter and loads the requested page.
func paginate[T any](ctx context.Context, db *gorm.DB, filter, order func(*gorm.DB) *gorm.DB, opts ListOptions) (Page[T], error) {
	page, perPage := opts.Page, opts.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	out := Page[T]{Page: page, PerPage: perPage}

	if err := db.WithContext(ctx).Model(new(T)).Scopes(filter).Count(&out.Total).Error; err != nil {
		return out, fmt.Errorf("count: %w", err)
	}
	out.Items = make([]T, 0, perPage)
	if out.Total == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Scopes(filter, withIncludes(opts.Includes), order).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&out.Items).Error
	if err != nil {
		return out, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

// likePattern wraps a search term for a substring LIKE match.
func likePattern(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}

var schemaCache sync.Map

// assign copies attributes onto dest, a pointer to a model, by column name.
func assign(db *gorm.DB, dest any, attrs model.Attributes) error {
	s, err := schema.Parse(dest, &schemaCache, db.NamingStrategy)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(dest).Elem()
	for col, v := range attrs {
		field := s.LookUpField(col)
		if field == nil {
			return fmt.Errorf("unknown column %q for %s", col, s.Table)
		}
		if err := field.Set(context.Background(), rv, v); err != nil {
			return fmt.Errorf("set %s: %w", col, err)
		}
	}
	return nil
}

// countBy returns the number of rows of M per value of column, restricted to ids.
func countBy[M any](ctx context.Context, db *gorm.DB, column string, ids []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		RefID uint64
		Total int64
	}
	err := db.WithContext(ctx).Model(new(M)).
		Select(column+" AS ref_id, COUNT(*) AS total").
		Where(clause.IN{Column: clause.Column{Name: column}, Values: toAny(ids)}).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RefID] = r.Total
	}
	return out, nil
}

func toAny(ids []uint64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// RelationCounts holds the number of expenses and incomes attached to a row.
type RelationCounts struct {
	Expenses int64
	Incomes  int64
}

// relationCounts counts expenses and incomes per value of column.
func relationCounts(ctx context.Context, db *gorm.DB, column string, ids []uint64) (map[uint64]RelationCounts, error) {
	exp, err := countBy[model.Expense](ctx, db, column, ids)
	if err != nil {
		return nil, err
	}
	inc, err := countBy[model.Income](ctx, db, column, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]RelationCounts, len(ids))
	for _, id := range ids {
		out[id] = RelationCounts{Expenses: exp[id], Incomes: inc[id]}
	}
	return out, nil
}
