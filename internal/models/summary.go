package models

// Summary represents aggregated totals over a user's transactions
type Summary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Balance      float64 `json:"balance"` // TotalIncome - TotalExpense
}
