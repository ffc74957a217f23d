package handler

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/queue"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/storage"
)

const (
	imageField       = "profile_image"
	msgImageRequired = "The profile image field is required."
	msgImageType     = "The profile image field must be a file of type: jpeg, png, jpg, gif."
	msgImageSize     = "The profile image field must not be greater than 2048 kilobytes."
)

// removeAccount deletes u together with its rows, tokens, sessions and
// profile picture.
func removeAccount(ctx context.Context, users *repository.UserRepo, images *storage.ImageStore, u *model.User) error {
	if err := users.Delete(ctx, u.ID); err != nil {
		return err
	}
	if images != nil {
		_ = images.Delete(u.ProfileImage)
	}
	return nil
}

// receiveImage stores the uploaded profile_image file and returns its name.
// A missing file is reported as a field error unless optional is set, in
// which case the empty name is returned.
func receiveImage(c echo.Context, images *storage.ImageStore, optional bool) (string, error) {
	fh, err := c.FormFile(imageField)
	if err != nil || fh.Size == 0 {
		if optional {
			return "", nil
		}
		return "", request.NewValidationError(imageField, msgImageRequired)
	}
	if fh.Size > storage.MaxImageBytes {
		return "", request.NewValidationError(imageField, msgImageSize)
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	name, err := images.Save(f)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return "", request.NewValidationError(imageField, msgImageSize)
	case errors.Is(err, storage.ErrUnsupported):
		return "", request.NewValidationError(imageField, msgImageType)
	case err != nil:
		return "", err
	}
	return name, nil
}

// replaceImage points u at a freshly stored picture and removes the old one.
func replaceImage(ctx context.Context, users *repository.UserRepo, images *storage.ImageStore, u *model.User, name string) error {
	old := u.ProfileImage
	if err := users.Update(ctx, u, model.Attributes{"profile_image": name}); err != nil {
		_ = images.Delete(name)
		return err
	}
	_ = images.Delete(old)
	return nil
}

// toggleAction names the event for an account whose status was just
// flipped.
func toggleAction(u *model.User) string {
	if u.IsActive {
		return queue.ActionActivated
	}
	return queue.ActionDeactivated
}
