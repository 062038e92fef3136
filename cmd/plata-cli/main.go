// Command plata-cli is an interactive console for the planner, useful
// for local testing without the HTTP server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"plata/assets"
	"plata/internal/backend"
	"plata/internal/config"
	"plata/internal/core"
	applog "plata/internal/log"
	"plata/internal/planner"
	"plata/internal/services"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "local", "user id to operate on")
	flag.Parse()

	logger := applog.New(applog.Config{Component: applog.ComponentCLI})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create backend:", err)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}()

	if tipCorpus, err := assets.Tips(); err == nil {
		_ = result.Store.SeedTips(ctx, tipCorpus)
	}

	svc := services.New(result.Store, services.Options{
		Epsilon:   cfg.OverspendEpsilon,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})

	cli := &console{
		svc:    svc,
		userID: *userID,
		in:     bufio.NewScanner(os.Stdin),
	}
	cli.run(ctx)
}

type console struct {
	svc    *services.PlannerService
	userID string
	in     *bufio.Scanner
}

func (c *console) run(ctx context.Context) {
	fmt.Println("plata — asistente de finanzas personales")
	for {
		fmt.Println()
		fmt.Println("1) Resumen del mes")
		fmt.Println("2) Registrar gasto")
		fmt.Println("3) Ingresos")
		fmt.Println("4) Deudas y planes de pago")
		fmt.Println("5) Tip financiero")
		fmt.Println("6) Atajos rápidos")
		fmt.Println("0) Salir")

		switch c.prompt("Opción: ") {
		case "1":
			c.showOverview(ctx)
		case "2":
			c.recordExpense(ctx)
		case "3":
			c.manageIncomes(ctx)
		case "4":
			c.manageDebts(ctx)
		case "5":
			c.showTip(ctx)
		case "6":
			c.runShortcut(ctx)
		case "0", "":
			fmt.Println("Hasta luego.")
			return
		default:
			fmt.Println("Opción no válida.")
		}
	}
}

func (c *console) prompt(label string) string {
	fmt.Print(label)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *console) promptAmount(label string) (decimal.Decimal, bool) {
	for {
		raw := c.prompt(label)
		if raw == "" {
			return decimal.Zero, false
		}
		amount, err := core.ParseAmount(raw)
		if err != nil {
			fmt.Println("Monto no válido, intenta de nuevo (ej. 1500 o $1,500.50).")
			continue
		}
		return amount, true
	}
}

func (c *console) showOverview(ctx context.Context) {
	snap := c.svc.Snapshot(ctx, c.userID)
	allocations := snap.Allocations()
	spent := snap.MonthToDate(time.Now())

	fmt.Printf("\nIngreso mensual total: %s\n", core.FormatMoney(snap.TotalIncome()))
	for _, st := range core.SpendTypes() {
		remaining := allocations[st].Sub(spent[st])
		fmt.Printf("  %s: gastado %s de %s (disponible %s)\n",
			st, core.FormatMoney(spent[st]), core.FormatMoney(allocations[st]), core.FormatMoney(remaining))
	}
	for st, amount := range snap.PendingOverspends {
		fmt.Printf("  Sobregiro pendiente en %s: %s\n", st, core.FormatMoney(amount))
	}
	if snap.Goal != "" {
		fmt.Printf("  Meta principal: %s\n", snap.Goal)
	}
}

func (c *console) recordExpense(ctx context.Context) {
	amount, ok := c.promptAmount("Monto: ")
	if !ok {
		return
	}
	category := c.prompt("Categoría: ")
	fmt.Println("Tipo de gasto:")
	types := core.SpendTypes()
	for i, st := range types {
		fmt.Printf("  %d) %s\n", i+1, st)
	}
	var spendType core.SpendType
	switch c.prompt("Opción: ") {
	case "1":
		spendType = types[0]
	case "2":
		spendType = types[1]
	case "3":
		spendType = types[2]
	default:
		fmt.Println("Tipo no válido.")
		return
	}
	description := c.prompt("Descripción (opcional): ")

	result, err := c.svc.RecordTransaction(ctx, c.userID, core.Transaction{
		Amount:      amount,
		Category:    category,
		SpendType:   spendType,
		Description: description,
	})
	if err != nil {
		fmt.Println("No se pudo guardar el gasto:", err)
		return
	}

	if result.Status == services.StatusOK {
		fmt.Printf("Gasto registrado. Te quedan %s en %s este mes.\n",
			core.FormatMoney(result.Remaining), result.SpendType)
		return
	}

	fmt.Printf("Te pasaste por %s en %s.\n", core.FormatMoney(result.Overage), result.SpendType)
	if result.Resolved {
		fmt.Println("No hay fondos disponibles en otras categorías; quedó registrado como sobregiro pendiente.")
		return
	}
	c.reconcile(ctx, result)
}

func (c *console) reconcile(ctx context.Context, result services.RecordResult) {
	fmt.Println("¿De dónde quieres mover fondos?")
	for i, opt := range result.Options {
		fmt.Printf("  %d) %s (disponible %s)\n", i+1, opt.Source, core.FormatMoney(opt.Available))
	}
	fmt.Println("  0) Dejarlo como sobregiro pendiente")

	var source core.SpendType
	switch choice := c.prompt("Opción: "); choice {
	case "0", "":
		res, err := c.svc.ResolveOverspend(ctx, c.userID, services.Choice{Leave: true})
		if err != nil {
			fmt.Println("No se pudo guardar:", err)
			return
		}
		fmt.Printf("Quedó un sobregiro pendiente de %s.\n", core.FormatMoney(res.RemainingPending))
		return
	default:
		for i, opt := range result.Options {
			if choice == fmt.Sprint(i+1) {
				source = opt.Source
			}
		}
		if source == "" {
			fmt.Println("Opción no válida.")
			return
		}
	}

	res, err := c.svc.ResolveOverspend(ctx, c.userID, services.Choice{Source: source})
	if err != nil {
		fmt.Println("No se pudo elegir la categoría:", err)
		return
	}
	fmt.Printf("Sugerido: mover %s desde %s.\n", core.FormatMoney(res.Suggested), source)

	for {
		amount, ok := c.promptAmount("¿Cuánto quieres mover? ")
		if !ok {
			return
		}
		res, err = c.svc.ResolveOverspend(ctx, c.userID, services.Choice{
			Source:    source,
			Amount:    amount,
			HasAmount: true,
		})
		if errors.Is(err, planner.ErrInvalidMove) {
			fmt.Println("Monto fuera de rango, intenta de nuevo.")
			continue
		}
		if err != nil {
			fmt.Println("No se pudo aplicar el movimiento:", err)
			return
		}
		break
	}

	if res.RemainingPending.Sign() > 0 {
		fmt.Printf("Movimiento aplicado; queda un sobregiro pendiente de %s.\n",
			core.FormatMoney(res.RemainingPending))
	} else {
		fmt.Println("Movimiento aplicado, presupuesto ajustado.")
	}
}

func (c *console) manageIncomes(ctx context.Context) {
	snap := c.svc.Snapshot(ctx, c.userID)
	if len(snap.Incomes) == 0 {
		fmt.Println("No tienes ingresos registrados.")
	}
	for _, inc := range snap.Incomes {
		fmt.Printf("  %s: %s/mes (id %s)\n", inc.Name, core.FormatMoney(inc.Monthly), inc.ID)
	}

	if c.prompt("¿Agregar un ingreso? (s/n): ") != "s" {
		return
	}
	name := c.prompt("Nombre: ")
	monthly, ok := c.promptAmount("Monto mensual: ")
	if !ok {
		return
	}
	if _, err := c.svc.SaveIncome(ctx, c.userID, core.Income{Name: name, Monthly: monthly}); err != nil {
		fmt.Println("No se pudo guardar el ingreso:", err)
		return
	}
	fmt.Println("Ingreso guardado.")
}

func (c *console) manageDebts(ctx context.Context) {
	snap := c.svc.Snapshot(ctx, c.userID)
	for _, d := range snap.Debts {
		fmt.Printf("  %s: saldo %s, tasa %s%%, pago mínimo %s\n",
			d.Name, core.FormatMoney(d.Balance), d.AnnualRate.StringFixed(2), core.FormatMoney(d.MinPayment))
	}

	if c.prompt("¿Agregar una deuda? (s/n): ") == "s" {
		name := c.prompt("Nombre: ")
		balance, ok := c.promptAmount("Saldo: ")
		if !ok {
			return
		}
		rateRaw := c.prompt("Tasa anual (%): ")
		rate, err := decimal.NewFromString(rateRaw)
		if err != nil {
			fmt.Println("Tasa no válida.")
			return
		}
		minPayment, ok := c.promptAmount("Pago mínimo: ")
		if !ok {
			return
		}
		if _, err := c.svc.SaveDebt(ctx, c.userID, core.Debt{
			Name: name, Balance: balance, AnnualRate: rate, MinPayment: minPayment,
		}); err != nil {
			fmt.Println("No se pudo guardar la deuda:", err)
			return
		}
		fmt.Println("Deuda guardada.")
	}

	extra := decimal.Zero
	if raw := c.prompt("Monto extra mensual para el plan (enter para omitir): "); raw != "" {
		if parsed, err := core.ParseAmount(raw); err == nil {
			extra = parsed
		}
	}
	plans := c.svc.ComputeDebtPlans(ctx, c.userID, extra)
	fmt.Println("\n== Método avalancha ==")
	fmt.Println(plans.Avalanche)
	fmt.Println("== Método bola de nieve ==")
	fmt.Println(plans.Snowball)
}

func (c *console) showTip(ctx context.Context) {
	tip, err := c.svc.NextTip(ctx, c.userID)
	if err != nil {
		fmt.Println("No se pudo obtener un tip:", err)
		return
	}
	if tip == nil {
		fmt.Println("No hay tips disponibles por ahora.")
		return
	}
	fmt.Printf("\n%s\n%s\n", tip.Title, tip.Explanation)
}

func (c *console) runShortcut(ctx context.Context) {
	snap := c.svc.Snapshot(ctx, c.userID)
	if len(snap.Shortcuts) == 0 {
		fmt.Println("No tienes atajos guardados.")
		return
	}
	for i, sc := range snap.Shortcuts {
		fmt.Printf("  %d) %s: %s en %s (%s)\n",
			i+1, sc.Name, core.FormatMoney(sc.Amount), sc.Category, sc.SpendType)
	}
	choice := c.prompt("Atajo: ")
	for i, sc := range snap.Shortcuts {
		if choice == fmt.Sprint(i+1) {
			result, err := c.svc.InvokeShortcut(ctx, c.userID, sc.ID)
			if err != nil {
				fmt.Println("No se pudo registrar el gasto:", err)
				return
			}
			if result.Status == services.StatusOK {
				fmt.Printf("Gasto registrado. Te quedan %s en %s.\n",
					core.FormatMoney(result.Remaining), result.SpendType)
			} else if result.Resolved {
				fmt.Println("Quedó registrado como sobregiro pendiente.")
			} else {
				fmt.Printf("Te pasaste por %s en %s.\n",
					core.FormatMoney(result.Overage), result.SpendType)
				c.reconcile(ctx, result)
			}
			return
		}
	}
	fmt.Println("Atajo no válido.")
}
