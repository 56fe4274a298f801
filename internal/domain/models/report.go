package models

import "time"

// DailyReport represents the aggregated financial summary stored once per day.
type DailyReport struct {
	Date         time.Time `bson:"date" json:"date"`
	TotalIncome  float64   `bson:"total_income" json:"total_income"`
	TotalExpense float64   `bson:"total_expense" json:"total_expense"`
	Net          float64   `bson:"net" json:"net"`
	EntryCount   int       `bson:"entry_count" json:"entry_count"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
