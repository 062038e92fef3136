package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidSpendType = errors.New("invalid spend type")
	ErrInvalidRate      = errors.New("invalid interest rate")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
)

type (
	// Income is a named monthly income source. The sum of all incomes is
	// the total the budget percentages are applied to.
	Income struct {
		ID      string
		Name    string
		Monthly decimal.Decimal
	}

	// Transaction is an immutable spend record. Category is a free-form
	// display tag; SpendType decides which budget bucket it counts
	// against.
	Transaction struct {
		ID          string
		Amount      decimal.Decimal
		Category    string
		SpendType   SpendType
		Description string
		Date        time.Time
	}

	// Debt is an input to the payoff planner; the planner never mutates
	// it. AnnualRate is a percentage (25 means 25% a year).
	Debt struct {
		ID         string
		Name       string
		Balance    decimal.Decimal
		AnnualRate decimal.Decimal
		MinPayment decimal.Decimal
	}

	// Shortcut is a saved quick-expense template. Invoking it produces a
	// Transaction with the same amount, category and spend type, and the
	// shortcut name as description.
	Shortcut struct {
		ID        string
		Name      string
		Amount    decimal.Decimal
		Category  string
		SpendType SpendType
	}

	// Tip is a static educational message tagged by income level
	// ("Nivel 1".."Nivel 5" or "Todos") and debt condition ("Con deudas",
	// "Sin deudas").
	Tip struct {
		ID           string   `json:"id"`
		Title        string   `json:"titulo"`
		Explanation  string   `json:"explicacion"`
		IncomeLevels []string `json:"nivel_ingreso"`
		Conditions   []string `json:"condicion"`
	}
)

func (i Income) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Monthly.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.SpendType.Valid() {
		return ErrInvalidSpendType
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if d.Balance.Sign() < 0 {
		return ErrInvalidAmount
	}
	// Annual rate is a percentage; anything at or beyond 200% is treated
	// as a data-entry mistake.
	if d.AnnualRate.Sign() <= 0 || d.AnnualRate.GreaterThanOrEqual(decimal.NewFromInt(200)) {
		return ErrInvalidRate
	}
	if d.MinPayment.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Shortcut) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	if !s.SpendType.Valid() {
		return ErrInvalidSpendType
	}
	return nil
}

// Invoke materializes the shortcut into a transaction dated at ts.
func (s Shortcut) Invoke(ts time.Time) Transaction {
	return Transaction{
		Amount:      s.Amount,
		Category:    s.Category,
		SpendType:   s.SpendType,
		Description: s.Name,
		Date:        ts,
	}
}
