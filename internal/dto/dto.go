// Package dto turns validated requests into the attribute sets written by
// the repositories. ToAttributes is the only way request data reaches a
// create or update call; it emits exactly the columns a DTO carries and
// nothing else. Pointer fields that are nil are left out, which is how
// partial updates keep the columns they do not mention.
package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

// owner picks the owner of a new row: the actor, or the requested user_id
// when the actor is an admin.
func owner(a policy.ActingUser, requested *request.Field) (uint64, error) {
	if requested == nil || requested.String() == "" || !a.IsAdmin() {
		return a.ID, nil
	}
	id, err := requested.Uint()
	if err != nil {
		return 0, fmt.Errorf("user_id: %w", err)
	}
	return id, nil
}

func ptr[T any](v T) *T { return &v }

func text(f *request.Field) *string {
	if f == nil {
		return nil
	}
	return ptr(f.String())
}

// ---- categories ----

type Category struct {
	Name   *string
	UserID *uint64
}

func CategoryFromStore(in request.StoreCategory, a policy.ActingUser) (Category, error) {
	uid, err := owner(a, in.UserID)
	if err != nil {
		return Category{}, err
	}
	return Category{Name: ptr(in.Name.String()), UserID: &uid}, nil
}

// CategoryFromUpdate keeps the owner unless an admin reassigns it.
func CategoryFromUpdate(in request.UpdateCategory, a policy.ActingUser) (Category, error) {
	d := Category{Name: text(in.Name)}
	if a.IsAdmin() && in.UserID != nil && in.UserID.String() != "" {
		uid, err := in.UserID.Uint()
		if err != nil {
			return Category{}, fmt.Errorf("user_id: %w", err)
		}
		d.UserID = &uid
	}
	return d, nil
}

func CategoryFromRecord(c *model.Category) Category {
	return Category{Name: ptr(c.Name), UserID: ptr(c.UserID)}
}

func (d Category) ToAttributes() model.Attributes {
	attrs := model.Attributes{}
	if d.Name != nil {
		attrs["name"] = *d.Name
	}
	if d.UserID != nil {
		attrs["user_id"] = *d.UserID
	}
	return attrs
}

// ---- expenses and incomes ----

type Entry struct {
	Amount      *decimal.Decimal
	Description *string
	Date        *time.Time
	CategoryID  *uint64
	UserID      *uint64
}

func EntryFromStore(in request.StoreEntry, a policy.ActingUser) (Entry, error) {
	d, err := EntryFromUpdate(in.Update())
	if err != nil {
		return Entry{}, err
	}
	uid, err := owner(a, in.UserID)
	if err != nil {
		return Entry{}, err
	}
	d.UserID = &uid
	return d, nil
}

// EntryFromUpdate converts the fields present in in. The owner never
// changes on update.
func EntryFromUpdate(in request.UpdateEntry) (Entry, error) {
	var d Entry
	if in.Amount != nil {
		amt, err := in.Amount.Decimal()
		if err != nil {
			return Entry{}, fmt.Errorf("amount: %w", err)
		}
		d.Amount = ptr(amt.Round(2))
	}
	d.Description = text(in.Description)
	if in.Date != nil {
		day, err := in.Date.Date()
		if err != nil {
			return Entry{}, fmt.Errorf("date: %w", err)
		}
		d.Date = &day
	}
	if in.CategoryID != nil {
		id, err := in.CategoryID.Uint()
		if err != nil {
			return Entry{}, fmt.Errorf("category_id: %w", err)
		}
		d.CategoryID = &id
	}
	return d, nil
}

func EntryFromRecord(v model.EntryView) Entry {
	day := time.Date(v.Date.Year(), v.Date.Month(), v.Date.Day(), 0, 0, 0, 0, time.UTC)
	return Entry{
		Amount:      ptr(v.Amount.Round(2)),
		Description: ptr(v.Description),
		Date:        &day,
		CategoryID:  ptr(v.CategoryID),
		UserID:      ptr(v.UserID),
	}
}

func (d Entry) ToAttributes() model.Attributes {
	attrs := model.Attributes{}
	if d.Amount != nil {
		attrs["amount"] = *d.Amount
	}
	if d.Description != nil {
		attrs["description"] = *d.Description
	}
	if d.Date != nil {
		attrs["date"] = *d.Date
	}
	if d.CategoryID != nil {
		attrs["category_id"] = *d.CategoryID
	}
	if d.UserID != nil {
		attrs["user_id"] = *d.UserID
	}
	return attrs
}

// ---- users ----

// User carries account fields. Password always holds a bcrypt hash.
type User struct {
	Name         *string
	Email        *string
	Password     *string
	ProfileImage *string
	IsActive     *bool
	Role         *model.Role
}

// UserFromStore builds a new account; role defaults to user and the account
// starts active unless stated otherwise.
func UserFromStore(in request.StoreUser, cost int) (User, error) {
	hash, err := utils.HashPassword(in.Password.String(), cost)
	if err != nil {
		return User{}, err
	}
	d := User{
		Name:     ptr(in.Name.String()),
		Email:    ptr(normalizeEmail(in.Email.String())),
		Password: &hash,
		IsActive: ptr(true),
		Role:     ptr(model.RoleUser),
	}
	if r, ok := model.ParseRole(in.Role.String()); ok {
		d.Role = &r
	}
	if v, ok := in.IsActive.Bool(); ok {
		d.IsActive = &v
	}
	return d, nil
}

// UserFromRegister builds a self-registered account.
func UserFromRegister(in request.Register, cost int) (User, error) {
	return UserFromStore(request.StoreUser{Name: in.Name, Email: in.Email, Password: in.Password}, cost)
}

// UserFromUpdate converts an account edit. Role and active status are only
// taken from admins.
func UserFromUpdate(in request.UpdateUser, a policy.ActingUser, cost int) (User, error) {
	d := User{Name: text(in.Name)}
	if in.Email != nil {
		d.Email = ptr(normalizeEmail(in.Email.String()))
	}
	if in.Password != nil && in.Password.String() != "" {
		hash, err := utils.HashPassword(in.Password.String(), cost)
		if err != nil {
			return User{}, err
		}
		d.Password = &hash
	}
	if a.IsAdmin() {
		if in.Role != nil {
			if r, ok := model.ParseRole(in.Role.String()); ok {
				d.Role = &r
			}
		}
		if in.IsActive != nil {
			if v, ok := in.IsActive.Bool(); ok {
				d.IsActive = &v
			}
		}
	}
	return d, nil
}

// UserFromRecord copies an account without its password hash.
func UserFromRecord(u *model.User) User {
	return User{
		Name:         ptr(u.Name),
		Email:        ptr(u.Email),
		ProfileImage: ptr(u.ProfileImage),
		IsActive:     ptr(u.IsActive),
		Role:         ptr(u.Role),
	}
}

func (d User) ToAttributes() model.Attributes {
	attrs := model.Attributes{}
	if d.Name != nil {
		attrs["name"] = *d.Name
	}
	if d.Email != nil {
		attrs["email"] = *d.Email
	}
	if d.Password != nil {
		attrs["password"] = *d.Password
	}
	if d.ProfileImage != nil {
		attrs["profile_image"] = *d.ProfileImage
	}
	if d.IsActive != nil {
		attrs["is_active"] = *d.IsActive
	}
	if d.Role != nil {
		attrs["role"] = *d.Role
	}
	return attrs
}

// RoleChange is the single-column update an admin makes from the web user
// screens.
func RoleChange(in request.UpdateRole) User {
	d := User{}
	if r, ok := model.ParseRole(in.Role.String()); ok {
		d.Role = &r
	}
	return d
}

// ---- profile ----

// Profile is what account owners may change about themselves.
type Profile struct {
	Name     *string
	Email    *string
	Password *string
}

func ProfileFromUpdate(in request.UpdateProfile, cost int) (Profile, error) {
	d := Profile{Name: text(in.Name)}
	if in.Email != nil {
		d.Email = ptr(normalizeEmail(in.Email.String()))
	}
	if in.Password != nil && in.Password.String() != "" {
		hash, err := utils.HashPassword(in.Password.String(), cost)
		if err != nil {
			return Profile{}, err
		}
		d.Password = &hash
	}
	return d, nil
}

func ProfileFromRecord(u *model.User) Profile {
	return Profile{Name: ptr(u.Name), Email: ptr(u.Email)}
}

func (d Profile) ToAttributes() model.Attributes {
	attrs := model.Attributes{}
	if d.Name != nil {
		attrs["name"] = *d.Name
	}
	if d.Email != nil {
		attrs["email"] = *d.Email
	}
	if d.Password != nil {
		attrs["password"] = *d.Password
	}
	return attrs
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
