package resource

import "github.com/iliyamo/finance-tracker/internal/service"

type CategoryTotal struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type Dashboard struct {
	TotalExpenses      string          `json:"total_expenses"`
	TotalIncomes       string          `json:"total_incomes"`
	Balance            string          `json:"balance"`
	ExpenseCount       int64           `json:"expense_count"`
	IncomeCount        int64           `json:"income_count"`
	CategoryCount      int64           `json:"category_count"`
	UserCount          *int64          `json:"user_count,omitempty"`
	LatestExpenses     []Entry         `json:"latest_expenses"`
	LatestIncomes      []Entry         `json:"latest_incomes"`
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
}

func (s Serializer) Dashboard(sum service.Summary) Dashboard {
	out := Dashboard{
		TotalExpenses:      sum.TotalExpenses.StringFixed(2),
		TotalIncomes:       sum.TotalIncomes.StringFixed(2),
		Balance:            sum.Balance.StringFixed(2),
		ExpenseCount:       sum.ExpenseCount,
		IncomeCount:        sum.IncomeCount,
		CategoryCount:      sum.CategoryCount,
		UserCount:          sum.UserCount,
		LatestExpenses:     SerializeAll(s, sum.LatestExpenses),
		LatestIncomes:      SerializeAll(s, sum.LatestIncomes),
		ExpensesByCategory: make([]CategoryTotal, 0, len(sum.ExpensesByCategory)),
	}
	for _, t := range sum.ExpensesByCategory {
		out.ExpensesByCategory = append(out.ExpensesByCategory, CategoryTotal{Name: t.Name, Total: t.Total.StringFixed(2)})
	}
	return out
}
