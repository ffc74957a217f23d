package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// EntryQuery filters a listing of expenses or incomes. Nil fields are
// not applied; date bounds are inclusive.
type EntryQuery struct {
	ListOptions
	OwnerID    *uint64
	CategoryID *uint64
	DateStart  *time.Time
	DateEnd    *time.Time
	AmountMin  *decimal.Decimal
	AmountMax  *decimal.Decimal
}

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	Name  string
	Total decimal.Decimal
}

// EntryRepo persists one of the two ledger record types.
type EntryRepo[T model.Entry] struct {
	db *gorm.DB
}

func NewEntryRepo[T model.Entry](db *gorm.DB) *EntryRepo[T] {
	return &EntryRepo[T]{db: db}
}

// table is the table name, which is also the plural kind name.
func (r *EntryRepo[T]) table() string { return model.KindOf[T]().Plural }

// Find loads a record with the requested relations.
func (r *EntryRepo[T]) Find(ctx context.Context, id uint64, includes []string) (*T, error) {
	var rec T
	err := r.db.WithContext(ctx).Scopes(withIncludes(includes)).First(&rec, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// List returns one page of records matching q.
func (r *EntryRepo[T]) List(ctx context.Context, q EntryQuery) (Page[T], error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.OwnerID != nil {
			db = db.Where("user_id = ?", *q.OwnerID)
		}
		if q.CategoryID != nil {
			db = db.Where("category_id = ?", *q.CategoryID)
		}
		if q.DateStart != nil {
			db = db.Where(clause.Gte{Column: clause.Column{Name: "date"}, Value: *q.DateStart})
		}
		if q.DateEnd != nil {
			db = db.Where(clause.Lte{Column: clause.Column{Name: "date"}, Value: *q.DateEnd})
		}
		if q.AmountMin != nil {
			db = db.Where("amount >= ?", *q.AmountMin)
		}
		if q.AmountMax != nil {
			db = db.Where("amount <= ?", *q.AmountMax)
		}
		if q.Search != "" {
			db = db.Where("description LIKE ?", likePattern(q.Search))
		}
		return db
	}
	return paginate[T](ctx, r.db, filter, entrySort.order(q.ListOptions), q.ListOptions)
}

// Create inserts a record built from attrs.
func (r *EntryRepo[T]) Create(ctx context.Context, attrs model.Attributes) (*T, error) {
	rec := new(T)
	if err := assign(r.db, rec, attrs); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// Update writes attrs to rec and reloads it. Loaded relations are dropped.
func (r *EntryRepo[T]) Update(ctx context.Context, rec *T, attrs model.Attributes) error {
	id := (*rec).View().ID
	if len(attrs) > 0 {
		if err := r.db.WithContext(ctx).Model(rec).Updates(map[string]any(attrs)).Error; err != nil {
			return translate(err)
		}
	}
	var fresh T
	if err := r.db.WithContext(ctx).First(&fresh, id).Error; err != nil {
		return translate(err)
	}
	*rec = fresh
	return nil
}

// Delete removes the record with the given id.
func (r *EntryRepo[T]) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// scope limits a query to one owner; nil means every owner.
func scope(owner *uint64, column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner != nil {
			db = db.Where(column+" = ?", *owner)
		}
		return db
	}
}

// Sum adds up the amounts of every record of owner (all owners when nil).
func (r *EntryRepo[T]) Sum(ctx context.Context, owner *uint64) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Model(new(T)).
		Scopes(scope(owner, "user_id")).
		Select("COALESCE(SUM(amount), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", r.table(), err)
	}
	return total.Round(2), nil
}

// Count returns the number of records of owner (all owners when nil).
func (r *EntryRepo[T]) Count(ctx context.Context, owner *uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).Scopes(scope(owner, "user_id")).Count(&n).Error
	return n, err
}

// Latest returns the n most recently created records with their category
// and owner loaded.
func (r *EntryRepo[T]) Latest(ctx context.Context, owner *uint64, n int) ([]T, error) {
	out := make([]T, 0, n)
	err := r.db.WithContext(ctx).
		Scopes(scope(owner, "user_id"), withIncludes(EntryIncludes)).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&out).Error
	return out, err
}

// ForCategory returns the n most recent records filed under a category.
func (r *EntryRepo[T]) ForCategory(ctx context.Context, categoryID uint64, n int) ([]T, error) {
	out := make([]T, 0, n)
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Scopes(withIncludes([]string{"user"})).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&out).Error
	return out, err
}

// SumByCategory totals amounts per category name, largest first.
func (r *EntryRepo[T]) SumByCategory(ctx context.Context, owner *uint64) ([]CategoryTotal, error) {
	t := r.table()
	var rows []CategoryTotal
	db := r.db.WithContext(ctx).
		Table(t).
		Select("categories.name AS name, SUM(" + t + ".amount) AS total").
		Joins("JOIN categories ON categories.id = " + t + ".category_id")
	if owner != nil {
		db = db.Where(t+".user_id = ?", *owner)
	}
	err := db.Group("categories.name").Order("total DESC").Order("categories.name").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum %s by category: %w", t, err)
	}
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, nil
}
