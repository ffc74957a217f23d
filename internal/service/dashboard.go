// Package service holds logic shared by the API and web handlers that is
// not tied to a single repository: the dashboard figures and the ledger
// event publisher.
package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/policy"
	"github.com/iliyamo/finance-tracker/internal/repository"
)

// LatestN is how many recent expenses and incomes the dashboard shows.
const LatestN = 5

// Summary is everything the dashboard renders. UserCount is only filled
// for admins.
type Summary struct {
	TotalExpenses      decimal.Decimal
	TotalIncomes       decimal.Decimal
	Balance            decimal.Decimal
	ExpenseCount       int64
	IncomeCount        int64
	CategoryCount      int64
	UserCount          *int64
	LatestExpenses     []model.Expense
	LatestIncomes      []model.Income
	ExpensesByCategory []repository.CategoryTotal
}

// Dashboard computes read-only figures scoped to the acting user, or over
// every user when the actor is an admin.
type Dashboard struct {
	Expenses   *repository.EntryRepo[model.Expense]
	Incomes    *repository.EntryRepo[model.Income]
	Categories *repository.CategoryRepo
	Users      *repository.UserRepo
}

func NewDashboard(db *gorm.DB) *Dashboard {
	return &Dashboard{
		Expenses:   repository.NewEntryRepo[model.Expense](db),
		Incomes:    repository.NewEntryRepo[model.Income](db),
		Categories: repository.NewCategoryRepo(db),
		Users:      repository.NewUserRepo(db),
	}
}

func (d *Dashboard) Summary(ctx context.Context, a policy.ActingUser) (Summary, error) {
	owner := a.Scope()
	var (
		s   Summary
		err error
	)
	if s.TotalExpenses, err = d.Expenses.Sum(ctx, owner); err != nil {
		return Summary{}, fmt.Errorf("sum expenses: %w", err)
	}
	if s.TotalIncomes, err = d.Incomes.Sum(ctx, owner); err != nil {
		return Summary{}, fmt.Errorf("sum incomes: %w", err)
	}
	s.Balance = s.TotalIncomes.Sub(s.TotalExpenses)

	if s.ExpenseCount, err = d.Expenses.Count(ctx, owner); err != nil {
		return Summary{}, fmt.Errorf("count expenses: %w", err)
	}
	if s.IncomeCount, err = d.Incomes.Count(ctx, owner); err != nil {
		return Summary{}, fmt.Errorf("count incomes: %w", err)
	}
	if s.CategoryCount, err = d.Categories.Count(ctx, owner); err != nil {
		return Summary{}, fmt.Errorf("count categories: %w", err)
	}
	if a.IsAdmin() {
		n, err := d.Users.Count(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("count users: %w", err)
		}
		s.UserCount = &n
	}

	if s.LatestExpenses, err = d.Expenses.Latest(ctx, owner, LatestN); err != nil {
		return Summary{}, fmt.Errorf("latest expenses: %w", err)
	}
	if s.LatestIncomes, err = d.Incomes.Latest(ctx, owner, LatestN); err != nil {
		return Summary{}, fmt.Errorf("latest incomes: %w", err)
	}
	if s.ExpensesByCategory, err = d.Expenses.SumByCategory(ctx, owner); err != nil {
		return Summary{}, fmt.Errorf("expenses by category: %w", err)
	}
	return s, nil
}
