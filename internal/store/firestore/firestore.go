// Package firestore is the hosted document-store backend. Each user owns
// one document in the usuarios collection plus the ingresos,
// transacciones, deudas and gastos_rapidos sub-collections; tips live in
// the shared tips_financieros collection.
//
// Monetary fields are persisted as decimal strings. The store offers no
// transactional guarantees across documents; the service layer owns
// consistency.
package firestore

import (
	"context"
	"fmt"
	"time"

	cfirestore "cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"plata/internal/core"
	"plata/internal/store"
)

const (
	usersCollection = "usuarios"
	tipsCollection  = "tips_financieros"

	incomesSub      = "ingresos"
	transactionsSub = "transacciones"
	debtsSub        = "deudas"
	shortcutsSub    = "gastos_rapidos"
)

type Store struct {
	client *cfirestore.Client
}

var _ store.Store = (*Store)(nil)

// New connects to the given project. credentialsFile may be empty, in
// which case ambient credentials are used.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := cfirestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) userRef(userID string) *cfirestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

func wrapErr(op string, err error) error {
	if status.Code(err) == codes.Unavailable || status.Code(err) == codes.DeadlineExceeded {
		return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// profileDoc mirrors the usuarios document shape. Every money-bearing
// value is a decimal string; malformed entries are dropped at this
// boundary rather than surfacing deeper in the planner.
type profileDoc struct {
	Goal        string            `firestore:"meta_principal"`
	Percentages map[string]string `firestore:"budget_percentages"`
	Pending     map[string]string `firestore:"sobregiros_mes_actual"`
	ShownTipIDs []string          `firestore:"tips_mostrados_ids"`
}

func decodeDecimalMap(raw map[string]string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(raw))
	for k, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		out[k] = d
	}
	return out
}

func encodeDecimalMap(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}

func (s *Store) LoadProfile(ctx context.Context, userID string) (store.Profile, error) {
	snap, err := s.userRef(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return store.Profile{}, wrapErr("load profile", err)
	}

	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return store.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return store.Profile{
		Goal:              doc.Goal,
		Percentages:       decodeDecimalMap(doc.Percentages),
		PendingOverspends: decodeDecimalMap(doc.Pending),
		ShownTipIDs:       doc.ShownTipIDs,
	}, nil
}

func (s *Store) SaveProfile(ctx context.Context, userID string, p store.Profile) error {
	shown := p.ShownTipIDs
	if shown == nil {
		shown = []string{}
	}
	doc := profileDoc{
		Goal:        p.Goal,
		Percentages: encodeDecimalMap(p.Percentages),
		Pending:     encodeDecimalMap(p.PendingOverspends),
		ShownTipIDs: shown,
	}
	if _, err := s.userRef(userID).Set(ctx, doc); err != nil {
		return wrapErr("save profile", err)
	}
	return nil
}

type incomeDoc struct {
	Name    string `firestore:"nombre"`
	Monthly string `firestore:"monto"`
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	iter := s.userRef(userID).Collection(incomesSub).Documents(ctx)
	defer iter.Stop()

	var out []core.Income
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("list incomes", err)
		}
		var doc incomeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode income %s: %w", snap.Ref.ID, err)
		}
		monthly, err := decimal.NewFromString(doc.Monthly)
		if err != nil {
			continue
		}
		out = append(out, core.Income{ID: snap.Ref.ID, Name: doc.Name, Monthly: monthly})
	}
	return out, nil
}

func (s *Store) SaveIncome(ctx context.Context, userID string, inc core.Income) (string, error) {
	doc := incomeDoc{Name: inc.Name, Monthly: inc.Monthly.String()}
	return s.saveSub(ctx, userID, incomesSub, inc.ID, doc)
}

func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.deleteSub(ctx, userID, incomesSub, id)
}

type transactionDoc struct {
	Amount      string    `firestore:"monto"`
	Category    string    `firestore:"categoria"`
	SpendType   string    `firestore:"tipo_gasto"`
	Description string    `firestore:"descripcion"`
	Date        time.Time `firestore:"fecha"`
}

func (s *Store) ListTransactions(ctx context.Context, userID string, year int, month time.Month) ([]core.Transaction, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	iter := s.userRef(userID).Collection(transactionsSub).
		Where("fecha", ">=", start).
		Where("fecha", "<", end).
		Documents(ctx)
	defer iter.Stop()

	var out []core.Transaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("list transactions", err)
		}
		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", snap.Ref.ID, err)
		}
		amount, err := decimal.NewFromString(doc.Amount)
		if err != nil {
			continue
		}
		out = append(out, core.Transaction{
			ID:          snap.Ref.ID,
			Amount:      amount,
			Category:    doc.Category,
			SpendType:   core.SpendType(doc.SpendType),
			Description: doc.Description,
			Date:        doc.Date,
		})
	}
	return out, nil
}

func (s *Store) SaveTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error) {
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	doc := transactionDoc{
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		SpendType:   string(tx.SpendType),
		Description: tx.Description,
		Date:        tx.Date.UTC(),
	}
	return s.saveSub(ctx, userID, transactionsSub, tx.ID, doc)
}

type debtDoc struct {
	Name       string `firestore:"nombre"`
	Balance    string `firestore:"saldo_actual"`
	AnnualRate string `firestore:"tasa_interes_anual"`
	MinPayment string `firestore:"pago_minimo_mensual"`
}

func (s *Store) ListDebts(ctx context.Context, userID string) ([]core.Debt, error) {
	iter := s.userRef(userID).Collection(debtsSub).Documents(ctx)
	defer iter.Stop()

	var out []core.Debt
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("list debts", err)
		}
		var doc debtDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode debt %s: %w", snap.Ref.ID, err)
		}
		balance, err1 := decimal.NewFromString(doc.Balance)
		rate, err2 := decimal.NewFromString(doc.AnnualRate)
		minPayment, err3 := decimal.NewFromString(doc.MinPayment)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out = append(out, core.Debt{
			ID:         snap.Ref.ID,
			Name:       doc.Name,
			Balance:    balance,
			AnnualRate: rate,
			MinPayment: minPayment,
		})
	}
	return out, nil
}

func (s *Store) SaveDebt(ctx context.Context, userID string, d core.Debt) (string, error) {
	doc := debtDoc{
		Name:       d.Name,
		Balance:    d.Balance.String(),
		AnnualRate: d.AnnualRate.String(),
		MinPayment: d.MinPayment.String(),
	}
	return s.saveSub(ctx, userID, debtsSub, d.ID, doc)
}

func (s *Store) DeleteDebt(ctx context.Context, userID, id string) error {
	return s.deleteSub(ctx, userID, debtsSub, id)
}

type shortcutDoc struct {
	Name      string `firestore:"nombre"`
	Amount    string `firestore:"monto"`
	Category  string `firestore:"categoria"`
	SpendType string `firestore:"tipo_gasto"`
}

func (s *Store) ListShortcuts(ctx context.Context, userID string) ([]core.Shortcut, error) {
	iter := s.userRef(userID).Collection(shortcutsSub).Documents(ctx)
	defer iter.Stop()

	var out []core.Shortcut
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("list shortcuts", err)
		}
		var doc shortcutDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode shortcut %s: %w", snap.Ref.ID, err)
		}
		amount, err := decimal.NewFromString(doc.Amount)
		if err != nil {
			continue
		}
		out = append(out, core.Shortcut{
			ID:        snap.Ref.ID,
			Name:      doc.Name,
			Amount:    amount,
			Category:  doc.Category,
			SpendType: core.SpendType(doc.SpendType),
		})
	}
	return out, nil
}

func (s *Store) SaveShortcut(ctx context.Context, userID string, sc core.Shortcut) (string, error) {
	doc := shortcutDoc{
		Name:      sc.Name,
		Amount:    sc.Amount.String(),
		Category:  sc.Category,
		SpendType: string(sc.SpendType),
	}
	return s.saveSub(ctx, userID, shortcutsSub, sc.ID, doc)
}

func (s *Store) DeleteShortcut(ctx context.Context, userID, id string) error {
	return s.deleteSub(ctx, userID, shortcutsSub, id)
}

func (s *Store) saveSub(ctx context.Context, userID, sub, id string, doc any) (string, error) {
	col := s.userRef(userID).Collection(sub)
	if id != "" {
		if _, err := col.Doc(id).Set(ctx, doc); err != nil {
			return "", wrapErr("save "+sub, err)
		}
		return id, nil
	}
	ref, _, err := col.Add(ctx, doc)
	if err != nil {
		return "", wrapErr("save "+sub, err)
	}
	return ref.ID, nil
}

func (s *Store) deleteSub(ctx context.Context, userID, sub, id string) error {
	if _, err := s.userRef(userID).Collection(sub).Doc(id).Delete(ctx); err != nil {
		return wrapErr("delete "+sub, err)
	}
	return nil
}

func (s *Store) UpdateBudgetPercentages(ctx context.Context, userID string, percentages map[string]decimal.Decimal) error {
	_, err := s.userRef(userID).Set(ctx, map[string]any{
		"budget_percentages": encodeDecimalMap(percentages),
	}, cfirestore.MergeAll)
	if err != nil {
		return wrapErr("update budget percentages", err)
	}
	return nil
}

func (s *Store) SetPendingOverspend(ctx context.Context, userID, spendType string, amount decimal.Decimal) error {
	_, err := s.userRef(userID).Set(ctx, map[string]any{
		"sobregiros_mes_actual": map[string]string{spendType: amount.String()},
	}, cfirestore.Merge(cfirestore.FieldPath{"sobregiros_mes_actual", spendType}))
	if err != nil {
		return wrapErr("set pending overspend", err)
	}
	return nil
}

func (s *Store) ClearPendingOverspend(ctx context.Context, userID, spendType string) error {
	_, err := s.userRef(userID).Update(ctx, []cfirestore.Update{{
		FieldPath: cfirestore.FieldPath{"sobregiros_mes_actual", spendType},
		Value:     cfirestore.Delete,
	}})
	if err != nil && status.Code(err) != codes.NotFound {
		return wrapErr("clear pending overspend", err)
	}
	return nil
}

func (s *Store) SetShownTipIDs(ctx context.Context, userID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	_, err := s.userRef(userID).Set(ctx, map[string]any{
		"tips_mostrados_ids": ids,
	}, cfirestore.MergeAll)
	if err != nil {
		return wrapErr("set shown tip ids", err)
	}
	return nil
}

func (s *Store) IncrementMonthlySummary(ctx context.Context, userID, monthKey, spendType string, delta decimal.Decimal) error {
	// Server-side float increment. The summary is a denormalized display
	// optimization; exact totals always come from the transactions
	// sub-collection.
	_, err := s.userRef(userID).Set(ctx, map[string]any{
		"resumen_mensual": map[string]any{
			monthKey: map[string]any{
				spendType: cfirestore.Increment(delta.InexactFloat64()),
			},
		},
	}, cfirestore.Merge(cfirestore.FieldPath{"resumen_mensual", monthKey, spendType}))
	if err != nil {
		return wrapErr("increment monthly summary", err)
	}
	return nil
}

type tipDoc struct {
	Title        string   `firestore:"titulo"`
	Explanation  string   `firestore:"explicacion"`
	IncomeLevels []string `firestore:"nivel_ingreso"`
	Conditions   []string `firestore:"condicion"`
}

func (s *Store) ListTips(ctx context.Context) ([]core.Tip, error) {
	iter := s.client.Collection(tipsCollection).Documents(ctx)
	defer iter.Stop()

	var out []core.Tip
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr("list tips", err)
		}
		var doc tipDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode tip %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.Tip{
			ID:           snap.Ref.ID,
			Title:        doc.Title,
			Explanation:  doc.Explanation,
			IncomeLevels: doc.IncomeLevels,
			Conditions:   doc.Conditions,
		})
	}
	return out, nil
}

func (s *Store) SeedTips(ctx context.Context, tips []core.Tip) error {
	col := s.client.Collection(tipsCollection)

	// Seed only an empty collection.
	iter := col.Limit(1).Documents(ctx)
	_, err := iter.Next()
	iter.Stop()
	if err == nil {
		return nil
	}
	if err != iterator.Done {
		return wrapErr("probe tips", err)
	}

	writer := s.client.BulkWriter(ctx)
	for _, tip := range tips {
		doc := tipDoc{
			Title:        tip.Title,
			Explanation:  tip.Explanation,
			IncomeLevels: tip.IncomeLevels,
			Conditions:   tip.Conditions,
		}
		if _, err := writer.Set(col.Doc(tip.ID), doc); err != nil {
			return wrapErr("seed tip", err)
		}
	}
	writer.End()
	return nil
}
