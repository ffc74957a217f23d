package handler

import (
	"context"
	"errors"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

// authenticate checks a login attempt. Unknown emails and wrong passwords
// get the same field error. Hashes made with an outdated cost are upgraded.
func authenticate(ctx context.Context, users *repository.UserRepo, in request.Login, cost int) (*model.User, error) {
	u, err := users.FindByEmail(ctx, in.Email.String())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if u == nil || !utils.VerifyPassword(u.Password, string(in.Password)) {
		return nil, request.NewValidationError("email", msgBadCredentials)
	}
	if utils.NeedsRehash(u.Password, cost) {
		if hash, err := utils.HashPassword(string(in.Password), cost); err == nil {
			_ = users.Update(ctx, u, model.Attributes{"password": hash})
		}
	}
	return u, nil
}
