package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// TokenRepo persists personal access tokens (single 'token_hash' column).
type TokenRepo struct{ DB *gorm.DB }

func NewTokenRepo(db *gorm.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create stores the hash of a freshly issued token.
func (r *TokenRepo) Create(ctx context.Context, userID uint64, name, tokenHash string, exp time.Time) (*model.PersonalAccessToken, error) {
	t := &model.PersonalAccessToken{UserID: userID, Name: name, TokenHash: tokenHash, ExpiresAt: exp.UTC()}
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// FindByHash returns the token row for a hash if it has not expired.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (*model.PersonalAccessToken, error) {
	var t model.PersonalAccessToken
	err := r.DB.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokenHash, time.Now().UTC()).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// Touch records that the token was just used.
func (r *TokenRepo) Touch(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.PersonalAccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now().UTC()).Error
}

// Delete revokes a single token.
func (r *TokenRepo) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Delete(&model.PersonalAccessToken{}, id).Error
}

// DeleteForUser revokes every token of a user.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.PersonalAccessToken{}).Error
}
