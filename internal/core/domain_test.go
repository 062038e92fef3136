package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSpendTypeNormalize(t *testing.T) {
	if got := LegacySavings.Normalize(); got != Inversion {
		t.Errorf("legacy alias normalized to %q, want %q", got, Inversion)
	}
	if got := Necesidades.Normalize(); got != Necesidades {
		t.Errorf("canonical bucket changed by Normalize: %q", got)
	}
	if SpendType("Otros").Valid() {
		t.Error("unknown bucket reported valid")
	}
	if !LegacySavings.Valid() {
		t.Error("legacy alias reported invalid")
	}
}

func TestTransactionValidate(t *testing.T) {
	base := Transaction{
		Amount:    decimal.NewFromInt(100),
		Category:  "Comida",
		SpendType: Necesidades,
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = decimal.Zero }, want: ErrInvalidAmount},
		{name: "blank category", mutate: func(tx *Transaction) { tx.Category = "  " }, want: ErrEmptyCategory},
		{name: "bad spend type", mutate: func(tx *Transaction) { tx.SpendType = "Viajes" }, want: ErrInvalidSpendType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			tt.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDebtValidate(t *testing.T) {
	base := Debt{
		Name:       "Tarjeta",
		Balance:    decimal.NewFromInt(2000),
		AnnualRate: decimal.NewFromInt(25),
		MinPayment: decimal.NewFromInt(100),
	}

	tests := []struct {
		name   string
		mutate func(*Debt)
		want   error
	}{
		{name: "valid", mutate: func(*Debt) {}},
		{name: "blank name", mutate: func(d *Debt) { d.Name = "" }, want: ErrEmptyName},
		{name: "negative balance", mutate: func(d *Debt) { d.Balance = decimal.NewFromInt(-1) }, want: ErrInvalidAmount},
		{name: "zero rate", mutate: func(d *Debt) { d.AnnualRate = decimal.Zero }, want: ErrInvalidRate},
		{name: "absurd rate", mutate: func(d *Debt) { d.AnnualRate = decimal.NewFromInt(200) }, want: ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestShortcutInvoke(t *testing.T) {
	sc := Shortcut{
		ID:        "sc-1",
		Name:      "Café de la mañana",
		Amount:    decimal.NewFromFloat(45.50),
		Category:  "Comida",
		SpendType: Deseos,
	}
	ts := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	tx := sc.Invoke(ts)
	if !tx.Amount.Equal(sc.Amount) {
		t.Errorf("amount = %s, want %s", tx.Amount, sc.Amount)
	}
	if tx.Category != sc.Category || tx.SpendType != sc.SpendType {
		t.Errorf("classification = %s/%s, want %s/%s", tx.Category, tx.SpendType, sc.Category, sc.SpendType)
	}
	if tx.Description != sc.Name {
		t.Errorf("description = %q, want shortcut name %q", tx.Description, sc.Name)
	}
	if !tx.Date.Equal(ts) {
		t.Errorf("date = %v, want %v", tx.Date, ts)
	}
	if err := tx.Validate(); err != nil {
		t.Errorf("invoked transaction should be valid: %v", err)
	}
}
