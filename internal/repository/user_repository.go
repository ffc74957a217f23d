package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// UserQuery filters the admin user listing.
type UserQuery struct {
	ListOptions
	Active *bool
	Role   *model.Role
}

type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

// Find fetches a user by id with the requested relations.
func (r *UserRepo) Find(ctx context.Context, id uint64, includes []string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Scopes(withIncludes(includes)).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Create inserts a user built from attrs.
func (r *UserRepo) Create(ctx context.Context, attrs model.Attributes) (*model.User, error) {
	u := &model.User{IsActive: true, Role: model.RoleUser}
	if err := assign(r.DB, u, attrs); err != nil {
		return nil, err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, emailConflict(translate(err))
	}
	return u, nil
}

// Update writes attrs to u and refreshes it.
func (r *UserRepo) Update(ctx context.Context, u *model.User, attrs model.Attributes) error {
	if email, ok := attrs["email"].(string); ok {
		attrs["email"] = strings.ToLower(strings.TrimSpace(email))
	}
	if len(attrs) > 0 {
		if err := r.DB.WithContext(ctx).Model(u).Updates(map[string]any(attrs)).Error; err != nil {
			return emailConflict(translate(err))
		}
	}
	var fresh model.User
	if err := r.DB.WithContext(ctx).First(&fresh, u.ID).Error; err != nil {
		return translate(err)
	}
	*u = fresh
	return nil
}

// Delete removes a user together with everything they own.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.PersonalAccessToken{}, &model.Session{}, &model.Expense{}, &model.Income{}, &model.Category{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List returns one page of users matching q. Search matches name or email.
func (r *UserRepo) List(ctx context.Context, q UserQuery) (Page[model.User], error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.Search != "" {
			p := likePattern(q.Search)
			db = db.Where("(name LIKE ? OR email LIKE ?)", p, p)
		}
		if q.Active != nil {
			db = db.Where("is_active = ?", *q.Active)
		}
		if q.Role != nil {
			db = db.Where("role = ?", string(*q.Role))
		}
		return db
	}
	return paginate[model.User](ctx, r.DB, filter, userSort.order(q.ListOptions), q.ListOptions)
}

// Counts returns the expense and income counts of each user in ids.
func (r *UserRepo) Counts(ctx context.Context, ids []uint64) (map[uint64]RelationCounts, error) {
	return relationCounts(ctx, r.DB, "user_id", ids)
}

// Count returns the number of accounts.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}

func emailConflict(err error) error {
	if errors.Is(err, ErrConflict) {
		return ErrEmailExists
	}
	return err
}
