// Package policy holds the authorization rules for every resource. Each
// check is a pure function of the acting user and the target; it returns
// nil when the action is allowed and a *Denial otherwise.
package policy

import (
	"errors"

	"github.com/iliyamo/finance-tracker/internal/model"
)

// ActingUser is the authenticated caller, passed explicitly to every check.
type ActingUser struct {
	ID   uint64
	Role model.Role
}

// Actor builds the ActingUser for a loaded account.
func Actor(u *model.User) ActingUser {
	return ActingUser{ID: u.ID, Role: u.Role}
}

func (a ActingUser) IsAdmin() bool { return a.Role.IsAdmin() }

// Scope returns the owner id a listing must be restricted to, or nil when
// the caller may see every row.
func (a ActingUser) Scope() *uint64 {
	if a.IsAdmin() {
		return nil
	}
	id := a.ID
	return &id
}

// Denial is returned when a policy refuses an action.
type Denial struct {
	Message string
}

func (d *Denial) Error() string { return d.Message }

const defaultDenial = "This action is unauthorized."

func deny(msg string) error {
	if msg == "" {
		msg = defaultDenial
	}
	return &Denial{Message: msg}
}

// Allows reports whether err is a nil policy result.
func Allows(err error) bool { return err == nil }

// IsDenial reports whether err carries a policy refusal.
func IsDenial(err error) bool {
	var d *Denial
	return errors.As(err, &d)
}

// Owned is implemented by every row that belongs to a single user.
type Owned interface {
	OwnerID() uint64
}

// Records applies to categories, expenses and incomes alike. Anyone may
// list or create; the listing itself is scoped by the caller, and admins
// may list everyone's rows. A row may only be read or changed by its
// owner, admins included.
var Records records

type records struct{}

func (records) ViewAny(ActingUser) error { return nil }
func (records) Create(ActingUser) error  { return nil }

func (records) View(a ActingUser, r Owned) error   { return owns(a, r) }
func (records) Update(a ActingUser, r Owned) error { return owns(a, r) }
func (records) Delete(a ActingUser, r Owned) error { return owns(a, r) }

func owns(a ActingUser, r Owned) error {
	if r.OwnerID() == a.ID {
		return nil
	}
	return deny("")
}

// Users guards account management.
var Users users

type users struct{}

func (users) ViewAny(a ActingUser) error { return requireAdmin(a) }
func (users) Create(a ActingUser) error  { return requireAdmin(a) }

func (users) View(a ActingUser, target *model.User) error   { return selfOrAdmin(a, target) }
func (users) Update(a ActingUser, target *model.User) error { return selfOrAdmin(a, target) }

func (users) Delete(a ActingUser, target *model.User) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	if target.ID == a.ID {
		return deny("You cannot delete your own account")
	}
	return nil
}

func (users) ToggleActive(a ActingUser, target *model.User) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	if target.ID == a.ID {
		return deny("You cannot block your own account")
	}
	return nil
}

func requireAdmin(a ActingUser) error {
	if a.IsAdmin() {
		return nil
	}
	return deny("")
}

func selfOrAdmin(a ActingUser, target *model.User) error {
	if a.IsAdmin() || target.ID == a.ID {
		return nil
	}
	return deny("")
}
