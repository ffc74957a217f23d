package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense and Income are structurally identical ledger records kept in
// separate tables. The category must belong to the same user as the
// record unless an admin wrote it; that rule lives in the handlers.
type Expense struct {
	ID          uint64          `gorm:"primaryKey"`
	UserID      uint64          `gorm:"not null;index"`
	CategoryID  uint64          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"size:255;not null"`
	Date        time.Time       `gorm:"type:date;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User     *User     `gorm:"foreignKey:UserID"`
	Category *Category `gorm:"foreignKey:CategoryID"`
}

type Income struct {
	ID          uint64          `gorm:"primaryKey"`
	UserID      uint64          `gorm:"not null;index"`
	CategoryID  uint64          `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"size:255;not null"`
	Date        time.Time       `gorm:"type:date;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User     *User     `gorm:"foreignKey:UserID"`
	Category *Category `gorm:"foreignKey:CategoryID"`
}

// EntryView is a read-only copy of either record type.
type EntryView struct {
	ID          uint64
	UserID      uint64
	CategoryID  uint64
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	User        *User
	Category    *Category
}

// Kind names a ledger record type.
type Kind struct {
	Singular string // "expense"
	Plural   string // "expenses", also the table and route name
	Title    string // "Expense"
	Currency string // suffix for formatted amounts
}

var (
	ExpenseKind = Kind{Singular: "expense", Plural: "expenses", Title: "Expense", Currency: " FRCFA"}
	IncomeKind  = Kind{Singular: "income", Plural: "incomes", Title: "Income", Currency: " €"}
)

// Entry is satisfied by the two ledger record types so repositories,
// policies and handlers can be written once.
type Entry interface {
	Expense | Income
	OwnerID() uint64
	Kind() Kind
	View() EntryView
}

func (e Expense) OwnerID() uint64 { return e.UserID }
func (e Expense) Kind() Kind      { return ExpenseKind }
func (e Expense) View() EntryView {
	return EntryView{
		ID: e.ID, UserID: e.UserID, CategoryID: e.CategoryID,
		Amount: e.Amount, Description: e.Description, Date: e.Date,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
		User: e.User, Category: e.Category,
	}
}

func (i Income) OwnerID() uint64 { return i.UserID }
func (i Income) Kind() Kind      { return IncomeKind }
func (i Income) View() EntryView {
	return EntryView{
		ID: i.ID, UserID: i.UserID, CategoryID: i.CategoryID,
		Amount: i.Amount, Description: i.Description, Date: i.Date,
		CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt,
		User: i.User, Category: i.Category,
	}
}

// KindOf returns the Kind of T without needing a value.
func KindOf[T Entry]() Kind {
	var zero T
	return zero.Kind()
}

// All lists every model managed by migrations, parents first.
func All() []any {
	return []any{&User{}, &PersonalAccessToken{}, &Session{}, &Category{}, &Expense{}, &Income{}}
}
