// Package debt orders debts for payoff and renders the step-by-step
// plan text.
package debt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

// NoDebtsMessage is returned instead of a plan when the user has no
// registered debts.
const NoDebtsMessage = "No tienes deudas registradas."

// Avalanche orders debts by annual interest rate, highest first. The sort
// is stable so equal rates keep their source order.
func Avalanche(debts []core.Debt) []core.Debt {
	ordered := append([]core.Debt(nil), debts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AnnualRate.GreaterThan(ordered[j].AnnualRate)
	})
	return ordered
}

// Snowball orders debts by current balance, smallest first, stable.
func Snowball(debts []core.Debt) []core.Debt {
	ordered := append([]core.Debt(nil), debts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Balance.LessThan(ordered[j].Balance)
	})
	return ordered
}

// RenderPlan formats an already-ordered payoff schedule: total of all
// minimum payments, where the extra goes, one priority line per debt,
// and the rollover instruction. It never mutates the debts.
func RenderPlan(ordered []core.Debt, extraMonthly decimal.Decimal) string {
	if len(ordered) == 0 {
		return NoDebtsMessage
	}

	totalMinimums := decimal.Zero
	for _, d := range ordered {
		totalMinimums = totalMinimums.Add(d.MinPayment)
	}

	var lines []string
	lines = append(lines,
		fmt.Sprintf("1. Paga el pago mínimo en TODAS tus deudas (%s al mes).", core.FormatMoney(totalMinimums)),
		fmt.Sprintf("2. Usa tu dinero extra mensual (%s) para atacar la primera deuda de la lista.", core.FormatMoney(extraMonthly)),
	)
	for i, d := range ordered {
		lines = append(lines, fmt.Sprintf("\nPrioridad #%d: %s (Saldo: %s, Tasa: %s%%)",
			i+1, d.Name, core.FormatMoney(d.Balance), d.AnnualRate.Round(2).StringFixed(2)))
	}
	lines = append(lines, "\n3. Al liquidar una deuda, suma su pago mínimo al dinero extra y ataca la siguiente.")
	return strings.Join(lines, "\n")
}
