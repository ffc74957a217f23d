package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// CategoryQuery filters a category listing. OwnerID nil lists every owner.
type CategoryQuery struct {
	ListOptions
	OwnerID *uint64
}

type CategoryRepo struct{ DB *gorm.DB }

func NewCategoryRepo(db *gorm.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// Find fetches a category with the requested relations.
func (r *CategoryRepo) Find(ctx context.Context, id uint64, includes []string) (*model.Category, error) {
	var c model.Category
	if err := r.DB.WithContext(ctx).Scopes(withIncludes(includes)).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// List returns one page of categories matching q.
func (r *CategoryRepo) List(ctx context.Context, q CategoryQuery) (Page[model.Category], error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = scope(q.OwnerID, "user_id")(db)
		if q.Search != "" {
			db = db.Where("name LIKE ?", likePattern(q.Search))
		}
		return db
	}
	return paginate[model.Category](ctx, r.DB, filter, categorySort.order(q.ListOptions), q.ListOptions)
}

// ForOwner lists every category of owner by name, for form select boxes.
func (r *CategoryRepo) ForOwner(ctx context.Context, owner *uint64) ([]model.Category, error) {
	var out []model.Category
	err := r.DB.WithContext(ctx).Scopes(scope(owner, "user_id")).Order("name").Order("id").Find(&out).Error
	return out, err
}

// Create inserts a category built from attrs.
func (r *CategoryRepo) Create(ctx context.Context, attrs model.Attributes) (*model.Category, error) {
	c := &model.Category{}
	if err := assign(r.DB, c, attrs); err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// Update writes attrs to c and refreshes it.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category, attrs model.Attributes) error {
	if len(attrs) > 0 {
		if err := r.DB.WithContext(ctx).Model(c).Updates(map[string]any(attrs)).Error; err != nil {
			return translate(err)
		}
	}
	var fresh model.Category
	if err := r.DB.WithContext(ctx).First(&fresh, c.ID).Error; err != nil {
		return translate(err)
	}
	*c = fresh
	return nil
}

// Delete removes a category that no expense or income references. The row
// is locked while dependents are counted so a concurrent insert cannot slip
// in between the check and the delete.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Category
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error; err != nil {
			return translate(err)
		}
		for _, m := range []any{&model.Expense{}, &model.Income{}} {
			var n int64
			if err := tx.Model(m).Where("category_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrInUse
			}
		}
		return translate(tx.Delete(&c).Error)
	})
}

// Counts returns the expense and income counts of each category in ids.
func (r *CategoryRepo) Counts(ctx context.Context, ids []uint64) (map[uint64]RelationCounts, error) {
	return relationCounts(ctx, r.DB, "category_id", ids)
}

// Count returns the number of categories of owner (all owners when nil).
func (r *CategoryRepo) Count(ctx context.Context, owner *uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Category{}).Scopes(scope(owner, "user_id")).Count(&n).Error
	return n, err
}
