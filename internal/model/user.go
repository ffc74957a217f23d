package model

import (
	"strings"
	"time"
)

// Role is the closed set of roles a user can hold. Admin includes every
// capability of User.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleUser, RoleAdmin}

// ParseRole converts free text into a Role. Unknown names are rejected
// rather than mapped to a default.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// IsAdmin reports whether the role grants administrative access.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// User represents an application account as stored in the `users` table.
//
// Fields:
//
//	ID           – primary key.
//	Name         – display name.
//	Email        – unique, stored lower-cased.
//	Password     – bcrypt hash; never serialized.
//	ProfileImage – file name under the profiles upload directory, empty when unset.
//	IsActive     – deactivated accounts cannot log in or use existing tokens.
//	Role         – user or admin.
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Name         string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	Password     string `gorm:"size:255;not null"`
	ProfileImage string `gorm:"size:255"`
	IsActive     bool   `gorm:"not null"`
	Role         Role   `gorm:"size:16;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Categories []Category `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Expenses   []Expense  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Incomes    []Income   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// IsAdmin is a shorthand for u.Role.IsAdmin().
func (u User) IsAdmin() bool { return u.Role.IsAdmin() }

// PersonalAccessToken is a revocable API credential. The bearer string is
// a signed JWT; only its SHA-256 digest is stored.
type PersonalAccessToken struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"not null;index"`
	Name       string `gorm:"size:255;not null"`
	TokenHash  string `gorm:"size:64;not null;uniqueIndex"`
	LastUsedAt *time.Time
	ExpiresAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Session is a web login session. ID is the SHA-256 digest of the cookie
// value; Payload holds the JSON encoded flash data carried to the next request.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    *uint64   `gorm:"index"`
	Payload   string    `gorm:"type:text"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}
