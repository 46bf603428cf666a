package domain

import "github.com/shopspring/decimal"

// Message-bus payloads. Top-level fields are snake_case JSON; OCR result
// items arrive with PascalCase fields, matching the external OCR worker.

// OcrTaskMessage is published on the image queue.
type OcrTaskMessage struct {
	TaskID     string   `json:"task_id"`
	ImageB64   string   `json:"image_b64"`
	Categories []string `json:"categories"`
}

// OcrResultItem is one recognised receipt line.
type OcrResultItem struct {
	Name            string          `json:"Name"`
	Price           decimal.Decimal `json:"Price"`
	Description     string          `json:"Description,omitempty"`
	TransactionDate *Date           `json:"TransactionDate,omitempty"`
	Category        string          `json:"Category,omitempty"`
	TransactionType string          `json:"TransactionType,omitempty"`
}

// OcrResultData wraps the recognised items.
type OcrResultData struct {
	Items []OcrResultItem `json:"items"`
}

// OcrResultMessage arrives on the parsed queue.
type OcrResultMessage struct {
	TaskID string         `json:"task_id"`
	Status string         `json:"status"`
	Data   *OcrResultData `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// AdviceGoal names the user's goal in an outbound advice task.
type AdviceGoal struct {
	Name       string `json:"name"`
	TargetDate *Date  `json:"target_date,omitempty"`
}

// MonthlyStat is one month of aggregated figures sent to the advice worker.
type MonthlyStat struct {
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`
	IncomeBySource     map[string]decimal.Decimal `json:"income_by_source"`
	AverageByCategory  map[string]decimal.Decimal `json:"average_by_category"`
}

// AdviceTaskMessage is published on the advice-tasks queue.
// MonthlyStats is keyed "YYYY-MM" and covers the last 3 calendar months.
type AdviceTaskMessage struct {
	TaskID       string                 `json:"task_id"`
	Goal         AdviceGoal             `json:"goal"`
	MonthlyStats map[string]MonthlyStat `json:"monthly_stats"`
}

// AdviceResultItem is one recommendation from the advice worker. Its ID
// becomes the persisted item order.
type AdviceResultItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// AdviceResultMessage arrives on the advice-results queue.
type AdviceResultMessage struct {
	TaskID string             `json:"task_id"`
	Status string             `json:"status"`
	Goal   string             `json:"goal"`
	Advice []AdviceResultItem `json:"advice"`
}
