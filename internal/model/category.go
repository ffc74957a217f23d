package model

import "time"

// Category is a named bucket for transactions, owned by exactly one user.
// It cannot be removed while an expense or income still points at it; the
// RESTRICT constraints back up the check done by the repository.
type Category struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"not null;index"`
	Name      string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User     *User     `gorm:"foreignKey:UserID"`
	Expenses []Expense `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Incomes  []Income  `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
}

// OwnerID returns the owning user's id.
func (c Category) OwnerID() uint64 { return c.UserID }
