package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/finance-tracker/internal/model"
)

type SessionRepo struct{ DB *gorm.DB }

func NewSessionRepo(db *gorm.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Find returns an unexpired session by id.
func (r *SessionRepo) Find(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now().UTC()).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Save inserts or replaces a session.
func (r *SessionRepo) Save(ctx context.Context, s *model.Session) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(s).Error
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Delete(&model.Session{}, "id = ?", id).Error
}

// DeleteForUser ends every session of a user.
func (r *SessionRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{}).Error
}

// DeleteExpired purges sessions past their expiry and returns how many went.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}
